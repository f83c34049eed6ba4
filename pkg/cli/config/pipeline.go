package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Pipeline holds pipeline definition file configuration
type Pipeline struct {
	files []string
}

// Flags returns CLI flags for pipeline configuration
func (x *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "pipeline",
			Aliases:     []string{"p"},
			Usage:       "Path to a pipeline definition file (TOML), repeatable",
			Category:    "Pipeline",
			Destination: &x.files,
			Sources:     cli.EnvVars("DROVER_PIPELINE"),
		},
	}
}

// Load parses all configured pipeline files
func (x *Pipeline) Load() ([]*model.Pipeline, error) {
	if len(x.files) == 0 {
		return nil, goerr.New("no pipeline files are configured")
	}

	pipelines := make([]*model.Pipeline, 0, len(x.files))
	for _, path := range x.files {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read pipeline file", goerr.V("path", path))
		}

		p, err := model.ParsePipeline(data)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse pipeline file", goerr.V("path", path))
		}

		pipelines = append(pipelines, p)
	}

	return pipelines, nil
}

func (x *Pipeline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("files", x.files),
	)
}
