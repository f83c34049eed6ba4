package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/utils/archive"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/drover/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

type runnerUseCase struct {
	runner    interfaces.CommandRunner
	github    interfaces.GitHubClient
	cache     interfaces.CacheStore
	repo      interfaces.RunRepository
	notifier  interfaces.Notifier
	diagnoser interfaces.DiagnoseUseCase
	now       func() time.Time
}

// RunnerOption is a functional option for the runner use case
type RunnerOption func(*runnerUseCase)

// WithGitHub enables checkout and commit status reporting
func WithGitHub(client interfaces.GitHubClient) RunnerOption {
	return func(uc *runnerUseCase) {
		uc.github = client
	}
}

// WithCache enables the dependency cache
func WithCache(store interfaces.CacheStore) RunnerOption {
	return func(uc *runnerUseCase) {
		uc.cache = store
	}
}

// WithRepository enables run record persistence
func WithRepository(repo interfaces.RunRepository) RunnerOption {
	return func(uc *runnerUseCase) {
		uc.repo = repo
	}
}

// WithNotifier enables notification of finished runs
func WithNotifier(notifier interfaces.Notifier) RunnerOption {
	return func(uc *runnerUseCase) {
		uc.notifier = notifier
	}
}

// WithDiagnoser enables LLM diagnosis of failed runs
func WithDiagnoser(diagnoser interfaces.DiagnoseUseCase) RunnerOption {
	return func(uc *runnerUseCase) {
		uc.diagnoser = diagnoser
	}
}

// WithClock replaces the time source, for tests
func WithClock(now func() time.Time) RunnerOption {
	return func(uc *runnerUseCase) {
		uc.now = now
	}
}

// NewRunner creates a new instance of RunnerUseCase
func NewRunner(runner interfaces.CommandRunner, opts ...RunnerOption) interfaces.RunnerUseCase {
	uc := &runnerUseCase{
		runner: runner,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// RunForEvent checks out the commit of the event and executes the pipeline
// against it
func (uc *runnerUseCase) RunForEvent(ctx context.Context, p *model.Pipeline, event *model.WebhookEvent) (*model.PipelineRun, error) {
	logger := logging.From(ctx)

	run := model.NewPipelineRun(p, event)
	uc.persist(ctx, run)
	uc.reportStatus(ctx, p, run, "pending", "pipeline queued")

	logger.Info("Starting pipeline run",
		"run_id", run.ID,
		"pipeline", p.Name,
		"repository", event.Repository,
		"branch", event.Branch,
		"commit_sha", event.CommitSHA,
	)

	workDir, cleanup, err := uc.checkout(ctx, event)
	if err != nil {
		run.Status = types.RunStatusFailure
		run.FinishedAt = uc.now()
		uc.persist(ctx, run)
		uc.reportStatus(ctx, p, run, "error", "checkout failed")
		return run, goerr.Wrap(err, "failed to checkout commit",
			goerr.V("repository", event.Repository),
			goerr.V("commit_sha", event.CommitSHA),
		)
	}
	defer cleanup()

	runErr := uc.execute(ctx, p, run, workDir)
	uc.finalize(ctx, p, run)

	return run, runErr
}

// RunLocal executes the pipeline against an existing working directory
// without checkout or GitHub side effects
func (uc *runnerUseCase) RunLocal(ctx context.Context, p *model.Pipeline, event *model.WebhookEvent, workDir string) (*model.PipelineRun, error) {
	run := model.NewPipelineRun(p, event)
	uc.persist(ctx, run)

	runErr := uc.execute(ctx, p, run, workDir)

	run.FinishedAt = uc.now()
	uc.persist(ctx, run)

	return run, runErr
}

// checkout downloads the commit zipball and extracts it to a temp dir. The
// returned working directory is the archive's root directory (GitHub
// zipballs wrap the tree in a single "owner-repo-sha" directory).
func (uc *runnerUseCase) checkout(ctx context.Context, event *model.WebhookEvent) (string, func(), error) {
	logger := logging.From(ctx)

	if uc.github == nil {
		return "", nil, goerr.New("GitHub client is not configured")
	}

	zipData, err := uc.github.DownloadZipball(ctx, event.Owner(), event.Repo(), event.CommitSHA)
	if err != nil {
		return "", nil, err
	}

	logger.Debug("Downloaded zipball",
		"size_bytes", len(zipData),
		"repository", event.Repository,
	)

	tempDir, err := os.MkdirTemp("", "drover-checkout-*")
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to create temporary directory")
	}
	cleanup := func() { safe.RemoveAll(tempDir) }

	if err := os.Chmod(tempDir, 0700); err != nil {
		cleanup()
		return "", nil, goerr.Wrap(err, "failed to set directory permissions", goerr.V("dir", tempDir))
	}

	files, size, err := archive.Unpack(zipData, tempDir)
	if err != nil {
		cleanup()
		return "", nil, goerr.Wrap(err, "failed to extract zipball")
	}

	logger.Info("Extracted checkout",
		"temp_dir", tempDir,
		"file_count", len(files),
		"total_size_bytes", size,
	)

	workDir, err := checkoutRoot(tempDir)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	return workDir, cleanup, nil
}

// checkoutRoot resolves the working directory inside an extracted zipball
func checkoutRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read checkout directory", goerr.V("dir", dir))
	}

	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}

	return dir, nil
}

// execute runs the pipeline steps in order inside workDir, restoring and
// saving the cache around them. The first nonzero exit fails the run and
// skips the remaining steps.
func (uc *runnerUseCase) execute(ctx context.Context, p *model.Pipeline, run *model.PipelineRun, workDir string) error {
	logger := logging.From(ctx)

	if p.Cache != nil {
		if err := uc.restoreCache(ctx, p, run, workDir); err != nil {
			run.Status = types.RunStatusFailure
			run.FinishedAt = uc.now()
			return err
		}
	}

	run.Status = types.RunStatusRunning
	run.StartedAt = uc.now()
	uc.persist(ctx, run)
	uc.reportStatus(ctx, p, run, "pending", "pipeline running")

	env := stepEnv(p)

	for i := range run.Steps {
		step := &run.Steps[i]

		if run.Status == types.RunStatusFailure {
			step.Status = types.StepStatusSkipped
			continue
		}

		step.Status = types.StepStatusRunning
		step.StartedAt = uc.now()

		logger.Info("Running step",
			"run_id", run.ID,
			"step", step.Name,
			"command", step.Command,
		)

		result, err := uc.runner.Run(ctx, workDir, env, step.Command)
		step.FinishedAt = uc.now()

		if err != nil {
			step.Status = types.StepStatusFailure
			step.ExitCode = -1
			run.Status = types.RunStatusFailure
			run.FinishedAt = uc.now()
			return goerr.Wrap(err, "failed to execute step",
				goerr.V("step", step.Name),
			)
		}

		step.ExitCode = result.ExitCode
		step.Output = string(result.Output)

		if result.ExitCode != 0 {
			step.Status = types.StepStatusFailure
			run.Status = types.RunStatusFailure

			logger.Warn("Step failed, aborting remaining steps",
				"run_id", run.ID,
				"step", step.Name,
				"exit_code", result.ExitCode,
			)
			continue
		}

		step.Status = types.StepStatusSuccess
	}

	run.FinishedAt = uc.now()

	if run.Status == types.RunStatusFailure {
		return nil
	}

	run.Status = types.RunStatusSuccess

	if p.Cache != nil && !run.CacheHit && uc.cache != nil {
		// A save failure degrades the next run to a cold cache, nothing more
		if err := uc.cache.Save(ctx, run.CacheKey, workDir, p.Cache.Paths); err != nil {
			logger.Warn("Failed to save cache", "key", run.CacheKey, "error", err)
		}
	}

	return nil
}

// restoreCache computes the cache key from the key files and restores the
// archive if present. A miss leaves the run on a cold cache.
func (uc *runnerUseCase) restoreCache(ctx context.Context, p *model.Pipeline, run *model.PipelineRun, workDir string) error {
	logger := logging.From(ctx)

	contents := make([][]byte, 0, len(p.Cache.KeyFiles))
	for _, name := range p.Cache.KeyFiles {
		data, err := os.ReadFile(filepath.Join(workDir, name))
		if err != nil {
			// Without a configured store the key is only bookkeeping, so a
			// missing key file must not fail the run
			if uc.cache == nil {
				logger.Warn("Failed to read cache key file, skipping cache key",
					"file", name,
					"error", err,
				)
				return nil
			}
			return goerr.Wrap(err, "failed to read cache key file",
				goerr.V("file", name),
			)
		}
		contents = append(contents, data)

		// Lockfile-shaped key files yield the pinned dependency list
		if lf, err := model.ParseLockfile(data); err == nil && len(lf.Packages) > 0 {
			run.Packages = append(run.Packages, lf.Packages...)
		}
	}

	run.CacheKey = model.CacheKey(p.Cache.KeyPrefix(p.Name), contents...)

	if uc.cache == nil {
		return nil
	}

	hit, err := uc.cache.Restore(ctx, run.CacheKey, workDir)
	if err != nil {
		return goerr.Wrap(err, "failed to restore cache",
			goerr.V("key", run.CacheKey),
		)
	}
	run.CacheHit = hit

	logger.Info("Cache lookup",
		"key", run.CacheKey,
		"hit", hit,
	)

	return nil
}

// finalize persists the finished run, reports the commit status, notifies,
// and requests a diagnosis for failures. Side-effect failures are logged but
// never change the run result.
func (uc *runnerUseCase) finalize(ctx context.Context, p *model.Pipeline, run *model.PipelineRun) {
	logger := logging.From(ctx)

	// Checkout failures leave no failed step, and there is no output to
	// analyze for them
	if run.Status == types.RunStatusFailure && run.FailedStep() != nil && uc.diagnoser != nil {
		diagnosis, err := uc.diagnoser.DiagnoseRun(ctx, run)
		if err != nil {
			logger.Warn("Failed to diagnose run", "run_id", run.ID, "error", err)
		} else {
			run.Diagnosis = diagnosis
			logger.Info("Diagnosed failed run",
				"run_id", run.ID,
				"category", diagnosis.Category,
				"summary", diagnosis.Summary,
			)
		}
	}

	uc.persist(ctx, run)

	switch run.Status {
	case types.RunStatusSuccess:
		uc.reportStatus(ctx, p, run, "success", "all steps passed")
	case types.RunStatusFailure:
		desc := "pipeline failed"
		if failed := run.FailedStep(); failed != nil {
			desc = fmt.Sprintf("step %q failed with exit code %d", failed.Name, failed.ExitCode)
		}
		uc.reportStatus(ctx, p, run, "failure", desc)
	}

	if uc.notifier != nil {
		if err := uc.notifier.NotifyRunFinished(ctx, run); err != nil {
			logger.Warn("Failed to notify run result", "run_id", run.ID, "error", err)
		}
	}

	logger.Info("Pipeline run finished",
		"run_id", run.ID,
		"status", run.Status,
		"duration", run.Duration(),
	)
}

// persist stores the run record best-effort
func (uc *runnerUseCase) persist(ctx context.Context, run *model.PipelineRun) {
	if uc.repo == nil {
		return
	}
	if err := uc.repo.PutRun(ctx, run); err != nil {
		logging.From(ctx).Warn("Failed to persist run", "run_id", run.ID, "error", err)
	}
}

// reportStatus sets the GitHub commit status best-effort
func (uc *runnerUseCase) reportStatus(ctx context.Context, p *model.Pipeline, run *model.PipelineRun, state, description string) {
	if uc.github == nil || run.CommitSHA == "" {
		return
	}

	status := &model.CommitStatus{
		State:       state,
		Description: description,
		Context:     "drover/" + string(p.Name),
	}

	ev := &model.WebhookEvent{Repository: run.Repository}
	if err := uc.github.CreateCommitStatus(ctx, ev.Owner(), ev.Repo(), run.CommitSHA, status); err != nil {
		logging.From(ctx).Warn("Failed to report commit status",
			"run_id", run.ID,
			"state", state,
			"error", err,
		)
	}
}

// stepEnv builds the environment for pipeline steps: the process env plus
// the pipeline env plus DROVER_EXEC when an executable name is declared.
func stepEnv(p *model.Pipeline) []string {
	env := os.Environ()
	for k, v := range p.Env {
		env = append(env, k+"="+v)
	}
	if p.Exec != "" {
		env = append(env, "DROVER_EXEC="+p.Exec)
	}
	return env
}
