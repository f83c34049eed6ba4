package cli

import (
	"context"

	"github.com/m-mizutani/drover/pkg/cli/config"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var pipelineCfg config.Pipeline

	return &cli.Command{
		Name:  "validate",
		Usage: "Validate pipeline definition files",
		Flags: pipelineCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			pipelines, err := pipelineCfg.Load()
			if err != nil {
				return err
			}

			for _, p := range pipelines {
				logger.Info("Pipeline is valid",
					"name", p.Name,
					"steps", len(p.Steps),
					"cache", p.Cache != nil,
				)
			}

			return nil
		},
	}
}
