package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

type runner struct {
	shell string
}

// Option is a functional option for the command runner
type Option func(*runner)

// WithShell sets the shell used to interpret step commands
func WithShell(shell string) Option {
	return func(r *runner) {
		r.shell = shell
	}
}

// New creates a CommandRunner that executes commands through a shell
func New(opts ...Option) interfaces.CommandRunner {
	r := &runner{
		shell: "sh",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command in dir with the given environment. Stdout and
// stderr are captured interleaved. A nonzero exit status is returned in the
// result; an error means the command could not be run at all.
func (r *runner) Run(ctx context.Context, dir string, env []string, command string) (*interfaces.CommandResult, error) {
	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Dir = dir
	cmd.Env = env

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, goerr.Wrap(err, "failed to run command",
				goerr.V("command", command),
				goerr.V("dir", dir),
			)
		}
		exitCode = exitErr.ExitCode()
	}

	return &interfaces.CommandResult{
		ExitCode: exitCode,
		Output:   buf.Bytes(),
		Duration: duration,
	}, nil
}
