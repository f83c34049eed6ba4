package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/cache"
	"github.com/m-mizutani/drover/pkg/infra/exec"
	"github.com/m-mizutani/drover/pkg/repository/memory"
	"github.com/m-mizutani/drover/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func testPipeline(cacheSpec *model.CacheSpec, steps ...model.Step) *model.Pipeline {
	return &model.Pipeline{
		Name: "brando",
		Exec: "brando",
		Env:  map[string]string{"CARGO_TERM_COLOR": "always"},
		Trigger: model.Trigger{
			Push: &model.BranchFilter{Branches: []string{"main"}},
		},
		Cache: cacheSpec,
		Steps: steps,
	}
}

func pushEvent() *model.WebhookEvent {
	return &model.WebhookEvent{
		ID:         "delivery-1",
		Type:       model.EventTypePush,
		Repository: "mizutani/brando",
		Branch:     "main",
		CommitSHA:  "0123456789abcdef0123456789abcdef01234567",
	}
}

func TestRunLocal_Success(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	uc := usecase.NewRunner(exec.New(), usecase.WithRepository(repo))

	workDir := t.TempDir()
	p := testPipeline(nil,
		model.Step{Name: "prepare", Run: "echo prepared > marker.txt"},
		model.Step{Name: "check env", Run: "echo exec=$DROVER_EXEC color=$CARGO_TERM_COLOR"},
		model.Step{Name: "verify", Run: "cat marker.txt"},
	)

	run := gt.R1(uc.RunLocal(ctx, p, pushEvent(), workDir)).NoError(t)

	gt.V(t, run.Status).Equal(types.RunStatusSuccess)
	gt.V(t, len(run.Steps)).Equal(3)
	for _, step := range run.Steps {
		gt.V(t, step.Status).Equal(types.StepStatusSuccess)
		gt.V(t, step.ExitCode).Equal(0)
	}

	// Pipeline env and executable name reach the steps
	gt.S(t, run.Steps[1].Output).Contains("exec=brando")
	gt.S(t, run.Steps[1].Output).Contains("color=always")

	// Steps share the working directory in order
	gt.S(t, run.Steps[2].Output).Contains("prepared")

	// The run record is persisted
	stored := gt.R1(repo.GetRun(ctx, run.ID)).NoError(t)
	gt.V(t, stored.Status).Equal(types.RunStatusSuccess)
}

func TestRunLocal_ShortCircuit(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewRunner(exec.New())

	p := testPipeline(nil,
		model.Step{Name: "install", Run: "echo installing"},
		model.Step{Name: "build", Run: "echo build broken >&2; exit 2"},
		model.Step{Name: "test", Run: "echo should not run"},
	)

	run, err := uc.RunLocal(ctx, p, pushEvent(), t.TempDir())
	gt.NoError(t, err) // step failure is a result, not an infrastructure error

	gt.V(t, run.Status).Equal(types.RunStatusFailure)
	gt.V(t, run.Steps[0].Status).Equal(types.StepStatusSuccess)
	gt.V(t, run.Steps[1].Status).Equal(types.StepStatusFailure)
	gt.V(t, run.Steps[1].ExitCode).Equal(2)
	gt.S(t, run.Steps[1].Output).Contains("build broken")
	gt.V(t, run.Steps[2].Status).Equal(types.StepStatusSkipped)

	failed := run.FailedStep()
	gt.V(t, failed.Name).Equal("build")
}

func TestRunLocal_Cache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewLocal(t.TempDir())
	uc := usecase.NewRunner(exec.New(), usecase.WithCache(store))

	spec := &model.CacheSpec{
		KeyFiles: []string{"Cargo.lock"},
		Paths:    []string{"target"},
	}
	p := testPipeline(spec,
		model.Step{Name: "build", Run: "mkdir -p target && echo artifact > target/out"},
	)

	lockfile := []byte("[[package]]\nname = \"bevy\"\nversion = \"0.7.0\"\n")

	// Cold cache: unknown key, run still completes and saves the cache
	workDir1 := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(workDir1, "Cargo.lock"), lockfile, 0644))

	run1 := gt.R1(uc.RunLocal(ctx, p, pushEvent(), workDir1)).NoError(t)
	gt.V(t, run1.Status).Equal(types.RunStatusSuccess)
	gt.False(t, run1.CacheHit)
	gt.S(t, run1.CacheKey).HasPrefix("brando-")

	// Lockfile-shaped key files surface their pinned dependencies
	gt.V(t, len(run1.Packages)).Equal(1)
	gt.V(t, run1.Packages[0].Name).Equal("bevy")
	gt.V(t, run1.Packages[0].Version).Equal("0.7.0")

	// Warm cache: same lockfile contents yield the same key and a hit
	workDir2 := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(workDir2, "Cargo.lock"), lockfile, 0644))

	run2 := gt.R1(uc.RunLocal(ctx, p, pushEvent(), workDir2)).NoError(t)
	gt.V(t, run2.CacheKey).Equal(run1.CacheKey)
	gt.True(t, run2.CacheHit)

	// The cached artifact was restored before the steps ran
	content := gt.R1(os.ReadFile(filepath.Join(workDir2, "target", "out"))).NoError(t)
	gt.S(t, string(content)).Contains("artifact")

	// A changed lockfile yields a different key and a cold cache
	workDir3 := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(workDir3, "Cargo.lock"), append(lockfile, '\n'), 0644))

	run3 := gt.R1(uc.RunLocal(ctx, p, pushEvent(), workDir3)).NoError(t)
	gt.V(t, run3.CacheKey).NotEqual(run1.CacheKey)
	gt.False(t, run3.CacheHit)
}

func TestRunLocal_CacheWithoutStore(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewRunner(exec.New())

	spec := &model.CacheSpec{
		KeyFiles: []string{"Cargo.lock"},
		Paths:    []string{"target"},
	}
	p := testPipeline(spec, model.Step{Name: "build", Run: "echo ok"})

	t.Run("Key file present", func(t *testing.T) {
		workDir := t.TempDir()
		gt.NoError(t, os.WriteFile(filepath.Join(workDir, "Cargo.lock"), []byte("lock"), 0644))

		run := gt.R1(uc.RunLocal(ctx, p, pushEvent(), workDir)).NoError(t)
		gt.V(t, run.Status).Equal(types.RunStatusSuccess)
		gt.S(t, run.CacheKey).HasPrefix("brando-")
		gt.False(t, run.CacheHit)
	})

	t.Run("Missing key file does not fail the run", func(t *testing.T) {
		run := gt.R1(uc.RunLocal(ctx, p, pushEvent(), t.TempDir())).NoError(t)
		gt.V(t, run.Status).Equal(types.RunStatusSuccess)
		gt.V(t, run.CacheKey).Equal("")
	})
}

func TestRunLocal_FailureSkipsCacheSave(t *testing.T) {
	ctx := context.Background()
	stored := &stubCache{}
	uc := usecase.NewRunner(exec.New(), usecase.WithCache(stored))

	spec := &model.CacheSpec{
		KeyFiles: []string{"Cargo.lock"},
		Paths:    []string{"target"},
	}
	p := testPipeline(spec, model.Step{Name: "build", Run: "exit 1"})

	workDir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(workDir, "Cargo.lock"), []byte("lock"), 0644))

	run := gt.R1(uc.RunLocal(ctx, p, pushEvent(), workDir)).NoError(t)
	gt.V(t, run.Status).Equal(types.RunStatusFailure)
	gt.V(t, stored.saved).Equal(0)
}

func TestRunForEvent(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	gh := &stubGitHub{zipball: makeZipball(t)}
	notifier := &stubNotifier{}

	uc := usecase.NewRunner(exec.New(),
		usecase.WithGitHub(gh),
		usecase.WithRepository(repo),
		usecase.WithNotifier(notifier),
	)

	p := testPipeline(nil,
		model.Step{Name: "verify checkout", Run: "cat Cargo.toml"},
	)

	run := gt.R1(uc.RunForEvent(ctx, p, pushEvent())).NoError(t)

	gt.V(t, run.Status).Equal(types.RunStatusSuccess)
	gt.S(t, run.Steps[0].Output).Contains("brando")

	// Commit statuses: pending (queued), pending (running), success
	gt.V(t, len(gh.statuses)).Equal(3)
	gt.V(t, gh.statuses[0].State).Equal("pending")
	gt.V(t, gh.statuses[len(gh.statuses)-1].State).Equal("success")
	gt.V(t, gh.statuses[0].Context).Equal("drover/brando")

	gt.V(t, notifier.notified).Equal(1)

	stored := gt.R1(repo.GetRun(ctx, run.ID)).NoError(t)
	gt.V(t, stored.Status).Equal(types.RunStatusSuccess)
}

func TestRunForEvent_CheckoutFailure(t *testing.T) {
	ctx := context.Background()
	gh := &stubGitHub{err: errors.New("zipball unavailable")}
	diagnoser := &stubDiagnoser{}

	uc := usecase.NewRunner(exec.New(),
		usecase.WithGitHub(gh),
		usecase.WithDiagnoser(diagnoser),
	)

	p := testPipeline(nil, model.Step{Name: "build", Run: "echo never runs"})

	run, err := uc.RunForEvent(ctx, p, pushEvent())
	gt.Error(t, err)
	gt.V(t, run.Status).Equal(types.RunStatusFailure)

	// No step ran, so there is nothing to diagnose
	gt.V(t, run.FailedStep()).Equal(nil)
	gt.V(t, diagnoser.called).Equal(0)
}

// makeZipball builds a GitHub-style zipball with a single root directory
func makeZipball(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w := gt.R1(zw.Create("mizutani-brando-0123456/Cargo.toml")).NoError(t)
	gt.R1(w.Write([]byte("[package]\nname = \"brando\"\n"))).NoError(t)
	gt.NoError(t, zw.Close())

	return buf.Bytes()
}

type stubGitHub struct {
	zipball  []byte
	err      error
	statuses []model.CommitStatus
}

func (s *stubGitHub) DownloadZipball(ctx context.Context, owner, repo string, ref types.CommitSHA) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.zipball, nil
}

func (s *stubGitHub) CreateCommitStatus(ctx context.Context, owner, repo string, sha types.CommitSHA, status *model.CommitStatus) error {
	s.statuses = append(s.statuses, *status)
	return nil
}

type stubCache struct {
	saved int
}

func (s *stubCache) Restore(ctx context.Context, key string, destDir string) (bool, error) {
	return false, nil
}

func (s *stubCache) Save(ctx context.Context, key string, baseDir string, paths []string) error {
	s.saved++
	return nil
}

type stubNotifier struct {
	notified int
}

func (s *stubNotifier) NotifyRunFinished(ctx context.Context, run *model.PipelineRun) error {
	s.notified++
	return nil
}

type stubDiagnoser struct {
	called int
}

func (s *stubDiagnoser) DiagnoseRun(ctx context.Context, run *model.PipelineRun) (*model.FailureDiagnosis, error) {
	s.called++
	return &model.FailureDiagnosis{Category: "unknown"}, nil
}

var (
	_ interfaces.GitHubClient    = (*stubGitHub)(nil)
	_ interfaces.CacheStore      = (*stubCache)(nil)
	_ interfaces.Notifier        = (*stubNotifier)(nil)
	_ interfaces.DiagnoseUseCase = (*stubDiagnoser)(nil)
)
