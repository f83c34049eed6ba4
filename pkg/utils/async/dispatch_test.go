package async_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/drover/pkg/utils/async"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestDispatch(t *testing.T) {
	t.Run("handler runs with preserved logger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx := logging.With(context.Background(), logger)

		done := make(chan *slog.Logger, 1)
		async.Dispatch(ctx, func(ctx context.Context) error {
			done <- logging.From(ctx)
			return nil
		})

		select {
		case got := <-done:
			gt.V(t, got).Equal(logger)
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("cancellation of the original context does not reach the handler", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		async.Dispatch(ctx, func(ctx context.Context) error {
			done <- ctx.Err()
			return nil
		})

		select {
		case err := <-done:
			gt.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("panic in handler is recovered", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer close(done)
			panic("boom")
		})

		select {
		case <-done:
			// The goroutine must not crash the process; reaching here is enough
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})
}
