package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/usecase"
	"github.com/m-mizutani/gt"
)

type stubRunner struct {
	runs []string
}

func (s *stubRunner) RunForEvent(ctx context.Context, p *model.Pipeline, e *model.WebhookEvent) (*model.PipelineRun, error) {
	s.runs = append(s.runs, string(p.Name))
	return model.NewPipelineRun(p, e), nil
}

func (s *stubRunner) RunLocal(ctx context.Context, p *model.Pipeline, e *model.WebhookEvent, workDir string) (*model.PipelineRun, error) {
	return model.NewPipelineRun(p, e), nil
}

var _ interfaces.RunnerUseCase = (*stubRunner)(nil)

// syncDispatch runs handlers inline so tests can observe the effects
func syncDispatch(ctx context.Context, handler func(ctx context.Context) error) {
	_ = handler(ctx)
}

func TestWebhookUseCase_ProcessEvent(t *testing.T) {
	ctx := context.Background()

	mainPipeline := &model.Pipeline{
		Name:    "brando",
		Trigger: model.Trigger{Push: &model.BranchFilter{Branches: []string{"main"}}},
		Steps:   []model.Step{{Name: "build", Run: "cargo build"}},
	}
	develPipeline := &model.Pipeline{
		Name:    "brando-nightly",
		Trigger: model.Trigger{Push: &model.BranchFilter{Branches: []string{"develop"}}},
		Steps:   []model.Step{{Name: "build", Run: "cargo build"}},
	}

	t.Run("dispatches only matching pipelines", func(t *testing.T) {
		runner := &stubRunner{}
		uc := usecase.NewWebhook(
			usecase.WithPipelines([]*model.Pipeline{mainPipeline, develPipeline}),
			usecase.WithRunner(runner),
			usecase.WithDispatcher(syncDispatch),
		)

		event := &model.WebhookEvent{
			ID:         "d1",
			Type:       model.EventTypePush,
			Repository: "mizutani/brando",
			Branch:     "main",
			ReceivedAt: time.Now(),
		}
		gt.NoError(t, uc.ProcessEvent(ctx, event))

		gt.V(t, runner.runs).Equal([]string{"brando"})
	})

	t.Run("non-matching branch dispatches nothing", func(t *testing.T) {
		runner := &stubRunner{}
		uc := usecase.NewWebhook(
			usecase.WithPipelines([]*model.Pipeline{mainPipeline}),
			usecase.WithRunner(runner),
			usecase.WithDispatcher(syncDispatch),
		)

		event := &model.WebhookEvent{
			Type:   model.EventTypePush,
			Branch: "feature/new-snake",
		}
		gt.NoError(t, uc.ProcessEvent(ctx, event))
		gt.V(t, len(runner.runs)).Equal(0)
	})

	t.Run("unsupported event is acknowledged without dispatch", func(t *testing.T) {
		runner := &stubRunner{}
		uc := usecase.NewWebhook(
			usecase.WithPipelines([]*model.Pipeline{mainPipeline}),
			usecase.WithRunner(runner),
			usecase.WithDispatcher(syncDispatch),
		)

		event := &model.WebhookEvent{
			Type:   model.EventTypePullRequest,
			Action: "closed",
			Branch: "main",
		}
		gt.NoError(t, uc.ProcessEvent(ctx, event))
		gt.V(t, len(runner.runs)).Equal(0)
	})

	t.Run("no runner configured", func(t *testing.T) {
		uc := usecase.NewWebhook(
			usecase.WithPipelines([]*model.Pipeline{mainPipeline}),
			usecase.WithDispatcher(syncDispatch),
		)

		event := &model.WebhookEvent{
			Type:   model.EventTypePush,
			Branch: "main",
		}
		gt.NoError(t, uc.ProcessEvent(ctx, event))
	})
}
