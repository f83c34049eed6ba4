package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/drover/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

func cmdImport() *cli.Command {
	var output string

	return &cli.Command{
		Name:      "import",
		Usage:     "Convert a GitHub Actions workflow file to a pipeline definition",
		ArgsUsage: "<workflow.yml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Output file path (stdout when unset)",
				Destination: &output,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			if c.Args().Len() != 1 {
				return goerr.New("exactly one workflow file is required")
			}
			input := c.Args().First()

			data, err := os.ReadFile(filepath.Clean(input))
			if err != nil {
				return goerr.Wrap(err, "failed to read workflow file", goerr.V("path", input))
			}

			workflow, err := model.ParseWorkflow(data)
			if err != nil {
				return err
			}

			pipeline, err := workflow.ToPipeline()
			if err != nil {
				return err
			}

			out, err := toml.Marshal(pipeline)
			if err != nil {
				return goerr.Wrap(err, "failed to encode pipeline")
			}

			if output == "" {
				if _, err := os.Stdout.Write(out); err != nil {
					return goerr.Wrap(err, "failed to write pipeline")
				}
				return nil
			}

			fd, err := os.Create(filepath.Clean(output))
			if err != nil {
				return goerr.Wrap(err, "failed to create output file", goerr.V("path", output))
			}
			defer safe.Close(fd)

			if _, err := fd.Write(out); err != nil {
				return goerr.Wrap(err, "failed to write pipeline", goerr.V("path", output))
			}

			logger.Info("Imported workflow",
				"input", input,
				"output", output,
				"pipeline", pipeline.Name,
			)
			return nil
		},
	}
}
