package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/drover/pkg/cli/config"
	controller "github.com/m-mizutani/drover/pkg/controller/http"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/infra/exec"
	"github.com/m-mizutani/drover/pkg/repository/memory"
	"github.com/m-mizutani/drover/pkg/usecase"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg    config.Server
		githubCfg    config.GitHub
		pipelineCfg  config.Pipeline
		cacheCfg     config.Cache
		firestoreCfg config.Firestore
		slackCfg     config.Slack
		geminiCfg    config.Gemini
		sentryCfg    config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)
	flags = append(flags, firestoreCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server to receive GitHub webhooks",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			logger.Info("Starting drover server",
				slog.Any("server", &serverCfg),
				slog.Any("github", &githubCfg),
				slog.Any("pipeline", &pipelineCfg),
				slog.Any("cache", &cacheCfg),
				slog.Any("firestore", &firestoreCfg),
				slog.Any("slack", &slackCfg),
				slog.Any("gemini", &geminiCfg),
			)

			if err := sentryCfg.Configure(ctx); err != nil {
				return err
			}

			pipelines, err := pipelineCfg.Load()
			if err != nil {
				return err
			}

			if !githubCfg.Enabled() {
				return goerr.New("GitHub App credentials are required for serve mode")
			}
			githubClient, err := githubCfg.NewClient()
			if err != nil {
				return err
			}

			var repo interfaces.RunRepository
			if firestoreCfg.Enabled() {
				repo, err = firestoreCfg.NewRepository(ctx)
				if err != nil {
					return err
				}
			} else {
				logger.Warn("Firestore is not configured, run records are kept in memory")
				repo = memory.New()
			}

			cacheStore, err := cacheCfg.NewStore(ctx)
			if err != nil {
				return err
			}

			runnerOpts := []usecase.RunnerOption{
				usecase.WithGitHub(githubClient),
				usecase.WithRepository(repo),
			}
			if cacheStore != nil {
				runnerOpts = append(runnerOpts, usecase.WithCache(cacheStore))
			}
			if slackCfg.Enabled() {
				runnerOpts = append(runnerOpts, usecase.WithNotifier(slackCfg.NewNotifier()))
			}
			if geminiCfg.Enabled() {
				llmClient, err := geminiCfg.NewClient(ctx)
				if err != nil {
					return err
				}
				diagnoser, err := usecase.NewDiagnose(llmClient)
				if err != nil {
					return err
				}
				runnerOpts = append(runnerOpts, usecase.WithDiagnoser(diagnoser))
			}

			runnerUC := usecase.NewRunner(exec.New(), runnerOpts...)
			webhookUC := usecase.NewWebhook(
				usecase.WithPipelines(pipelines),
				usecase.WithRunner(runnerUC),
			)

			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(string(githubCfg.WebhookSecret())),
				controller.WithRunRepository(repo),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
