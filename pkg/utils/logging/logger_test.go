package logging_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestConfigure(t *testing.T) {
	t.Run("valid text config", func(t *testing.T) {
		gt.NoError(t, logging.Configure("text", "debug", "stdout"))
	})

	t.Run("valid json config", func(t *testing.T) {
		gt.NoError(t, logging.Configure("json", "info", "stderr"))
	})

	t.Run("log file output", func(t *testing.T) {
		path := t.TempDir() + "/drover.log"
		gt.NoError(t, logging.Configure("json", "info", path))
		logging.Default().Info("hello")
		data := gt.R1(os.ReadFile(path)).NoError(t)
		gt.S(t, string(data)).Contains("hello")
	})

	t.Run("invalid level", func(t *testing.T) {
		err := logging.Configure("text", "loud", "stdout")
		gt.True(t, errors.Is(err, types.ErrInvalidOption))
	})

	t.Run("invalid format", func(t *testing.T) {
		err := logging.Configure("xml", "info", "stdout")
		gt.True(t, errors.Is(err, types.ErrInvalidOption))
	})
}

func TestContext(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback to default logger", func(t *testing.T) {
		gt.V(t, logging.From(ctx)).NotEqual(nil)
	})

	t.Run("logger round trip", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		ctx := logging.With(ctx, logger)
		gt.V(t, logging.From(ctx)).Equal(logger)
	})

	t.Run("request ID is stable within a context", func(t *testing.T) {
		id1, ctx := logging.CtxRequestID(ctx)
		id2, _ := logging.CtxRequestID(ctx)
		gt.V(t, id1).Equal(id2)
	})
}
