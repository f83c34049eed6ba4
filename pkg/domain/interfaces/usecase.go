package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . WebhookUseCase

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessEvent matches the event against configured pipelines and
	// dispatches runs for the matches
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) error
}

// RunnerUseCase defines operations for executing pipelines
type RunnerUseCase interface {
	// RunForEvent checks out the commit of the event and executes the
	// pipeline against it
	RunForEvent(ctx context.Context, pipeline *model.Pipeline, event *model.WebhookEvent) (*model.PipelineRun, error)

	// RunLocal executes the pipeline against an existing working directory
	// without checkout or GitHub side effects
	RunLocal(ctx context.Context, pipeline *model.Pipeline, event *model.WebhookEvent, workDir string) (*model.PipelineRun, error)
}

// DiagnoseUseCase defines operations for LLM-based failure analysis
type DiagnoseUseCase interface {
	// DiagnoseRun analyzes the failed step of a run and returns a
	// structured diagnosis
	DiagnoseRun(ctx context.Context, run *model.PipelineRun) (*model.FailureDiagnosis, error)
}
