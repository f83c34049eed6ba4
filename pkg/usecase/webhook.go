package usecase

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/utils/async"
	"github.com/m-mizutani/drover/pkg/utils/logging"
)

type webhookUseCase struct {
	pipelines []*model.Pipeline
	runner    interfaces.RunnerUseCase
	dispatch  func(ctx context.Context, handler func(ctx context.Context) error)
}

// WebhookOption is a functional option for the webhook use case
type WebhookOption func(*webhookUseCase)

// WithPipelines sets the pipelines matched against incoming events
func WithPipelines(pipelines []*model.Pipeline) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.pipelines = pipelines
	}
}

// WithRunner sets the runner that executes matched pipelines
func WithRunner(runner interfaces.RunnerUseCase) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.runner = runner
	}
}

// WithDispatcher replaces the async dispatcher, for tests
func WithDispatcher(dispatch func(ctx context.Context, handler func(ctx context.Context) error)) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.dispatch = dispatch
	}
}

// NewWebhook creates a new instance of WebhookUseCase
func NewWebhook(opts ...WebhookOption) interfaces.WebhookUseCase {
	uc := &webhookUseCase{
		dispatch: async.Dispatch,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessEvent matches a webhook event against the configured pipelines and
// dispatches a run for each match. The event is acknowledged immediately;
// runs execute in the background.
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := logging.From(ctx)

	logger.Info("Processing webhook event",
		"id", event.ID,
		"type", event.Type,
		"action", event.Action,
		"repository", event.Repository,
		"branch", event.Branch,
		"sender", event.Sender,
	)

	if !event.IsSupportedEvent() {
		logger.Warn("Unsupported event received",
			"type", event.Type,
			"action", event.Action,
		)
		return nil
	}

	for _, p := range uc.pipelines {
		if !p.Matches(event) {
			continue
		}

		if uc.runner == nil {
			logger.Warn("Pipeline matched but no runner is configured", "pipeline", p.Name)
			continue
		}

		logger.Info("Dispatching pipeline run",
			"pipeline", p.Name,
			"repository", event.Repository,
			"branch", event.Branch,
		)

		pipeline := p
		uc.dispatch(ctx, func(ctx context.Context) error {
			_, err := uc.runner.RunForEvent(ctx, pipeline, event)
			return err
		})
	}

	return nil
}
