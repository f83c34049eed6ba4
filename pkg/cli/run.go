package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/drover/pkg/cli/config"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/exec"
	"github.com/m-mizutani/drover/pkg/usecase"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdRun() *cli.Command {
	var (
		pipelineCfg config.Pipeline
		cacheCfg    config.Cache

		workDir   string
		eventType string
		branch    string
		force     bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "workdir",
			Aliases:     []string{"w"},
			Usage:       "Working directory to run the pipeline in",
			Value:       ".",
			Destination: &workDir,
			Sources:     cli.EnvVars("DROVER_WORKDIR"),
		},
		&cli.StringFlag{
			Name:        "event",
			Usage:       "Simulated event type (push, pull_request)",
			Value:       "push",
			Destination: &eventType,
		},
		&cli.StringFlag{
			Name:        "branch",
			Usage:       "Simulated branch name for trigger matching",
			Value:       "main",
			Destination: &branch,
		},
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Run the pipeline even if its triggers do not match",
			Destination: &force,
		},
	}
	flags = append(flags, pipelineCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run pipelines against a local working directory",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			pipelines, err := pipelineCfg.Load()
			if err != nil {
				return err
			}

			cacheStore, err := cacheCfg.NewStore(ctx)
			if err != nil {
				return err
			}

			event := &model.WebhookEvent{
				Type:       model.WebhookEventType(eventType),
				Action:     "opened",
				Branch:     types.BranchName(branch),
				ReceivedAt: time.Now(),
			}
			if !event.IsSupportedEvent() {
				return goerr.Wrap(types.ErrInvalidOption, "invalid event type, should be 'push' or 'pull_request'",
					goerr.V("value", eventType),
				)
			}

			var runnerOpts []usecase.RunnerOption
			if cacheStore != nil {
				runnerOpts = append(runnerOpts, usecase.WithCache(cacheStore))
			}
			runnerUC := usecase.NewRunner(exec.New(), runnerOpts...)

			failed := 0
			for _, p := range pipelines {
				if !force && !p.Matches(event) {
					logger.Info("Pipeline does not match the event, skipping",
						"pipeline", p.Name,
						"event", event.Type,
						"branch", event.Branch,
					)
					continue
				}

				run, err := runnerUC.RunLocal(ctx, p, event, workDir)
				if err != nil {
					return err
				}

				printRunSummary(run)
				if run.Status != types.RunStatusSuccess {
					failed++
				}
			}

			if failed > 0 {
				return goerr.New("pipeline run failed", goerr.V("failed", failed))
			}
			return nil
		},
	}
}

var (
	stepColors = map[types.StepStatus]*color.Color{
		types.StepStatusSuccess: color.New(color.FgGreen),
		types.StepStatusFailure: color.New(color.FgRed, color.Bold),
		types.StepStatusSkipped: color.New(color.FgYellow),
	}
	headerColor = color.New(color.FgHiWhite, color.Bold)
)

func printRunSummary(run *model.PipelineRun) {
	headerColor.Printf("\n%s: %s (%s)\n", run.Pipeline, run.Status, run.Duration().Truncate(time.Millisecond))

	for _, step := range run.Steps {
		c, ok := stepColors[step.Status]
		if !ok {
			c = color.New(color.FgWhite)
		}

		switch step.Status {
		case types.StepStatusFailure:
			c.Printf("  %-8s %s (exit %d)\n", step.Status, step.Name, step.ExitCode)
		default:
			c.Printf("  %-8s %s\n", step.Status, step.Name)
		}
	}

	if run.CacheKey != "" {
		fmt.Printf("  cache: %s (hit=%v)\n", run.CacheKey, run.CacheHit)
	}
}
