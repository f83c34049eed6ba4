package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// GitHubClient defines operations for interacting with the GitHub API
type GitHubClient interface {
	// DownloadZipball downloads the source code zipball for a specific commit
	DownloadZipball(ctx context.Context, owner, repo string, ref types.CommitSHA) ([]byte, error)

	// CreateCommitStatus reports a commit status for the given commit
	CreateCommitStatus(ctx context.Context, owner, repo string, sha types.CommitSHA, status *model.CommitStatus) error
}

// CommandResult is the outcome of one executed command. A nonzero exit code
// is a result, not an error; errors are reserved for commands that could not
// be started.
type CommandResult struct {
	ExitCode int
	Output   []byte
	Duration time.Duration
}

// CommandRunner defines execution of a single shell command
type CommandRunner interface {
	Run(ctx context.Context, dir string, env []string, command string) (*CommandResult, error)
}

// CacheStore defines the dependency cache contract: restore before the
// build, save after it, both addressed by a content-derived key.
type CacheStore interface {
	// Restore unpacks the archive stored under key into destDir. A miss is
	// reported as (false, nil).
	Restore(ctx context.Context, key string, destDir string) (bool, error)

	// Save archives the given paths relative to baseDir under key
	Save(ctx context.Context, key string, baseDir string, paths []string) error
}

// Notifier defines delivery of run results to an external channel
type Notifier interface {
	NotifyRunFinished(ctx context.Context, run *model.PipelineRun) error
}
