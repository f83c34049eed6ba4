package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// RunRepository defines persistence of pipeline run records
type RunRepository interface {
	// PutRun creates or updates a run record
	PutRun(ctx context.Context, run *model.PipelineRun) error

	// GetRun returns the run with the given ID
	GetRun(ctx context.Context, id types.RunID) (*model.PipelineRun, error)

	// ListRuns returns the runs for a repository, newest first
	ListRuns(ctx context.Context, repo types.RepoName) ([]*model.PipelineRun, error)
}
