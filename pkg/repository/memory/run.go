package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

func (r *runRepository) PutRun(ctx context.Context, run *model.PipelineRun) error {
	if run.ID == "" {
		return goerr.Wrap(repository.ErrInvalidInput, "run ID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[string(run.ID)] = copyRun(run)

	return nil
}

func (r *runRepository) GetRun(ctx context.Context, id types.RunID) (*model.PipelineRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[string(id)]
	if !exists {
		return nil, goerr.Wrap(repository.ErrNotFound, "run not found",
			goerr.V("runID", id),
		)
	}

	return copyRun(run), nil
}

func (r *runRepository) ListRuns(ctx context.Context, repo types.RepoName) ([]*model.PipelineRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var runs []*model.PipelineRun
	for _, run := range r.runs {
		if run.Repository == repo {
			runs = append(runs, copyRun(run))
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// copyRun returns a deep copy so that callers cannot mutate stored records
func copyRun(run *model.PipelineRun) *model.PipelineRun {
	copied := *run
	copied.Steps = append([]model.StepResult(nil), run.Steps...)
	copied.Packages = append([]model.LockedPackage(nil), run.Packages...)
	if run.Diagnosis != nil {
		diag := *run.Diagnosis
		diag.Suggestions = append([]string(nil), run.Diagnosis.Suggestions...)
		copied.Diagnosis = &diag
	}
	return &copied
}
