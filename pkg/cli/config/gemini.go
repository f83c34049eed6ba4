package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"
)

// Gemini holds Gemini LLM configuration
type Gemini struct {
	projectID string
	location  string
	model     string
}

// Flags returns CLI flags for Gemini configuration
func (x *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project-id",
			Usage:       "Google Cloud Project ID for Gemini (optional, failure diagnosis is disabled when unset)",
			Category:    "Gemini",
			Destination: &x.projectID,
			Sources:     cli.EnvVars("DROVER_GEMINI_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Vertex AI location/region",
			Category:    "Gemini",
			Value:       "us-central1",
			Destination: &x.location,
			Sources:     cli.EnvVars("DROVER_GEMINI_LOCATION"),
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model to use",
			Category:    "Gemini",
			Value:       "gemini-2.5-flash",
			Destination: &x.model,
			Sources:     cli.EnvVars("DROVER_GEMINI_MODEL"),
		},
	}
}

// Enabled reports whether the Gemini client is configured
func (x *Gemini) Enabled() bool {
	return x.projectID != ""
}

// NewClient builds a Gemini LLM client with Application Default Credentials
func (x *Gemini) NewClient(ctx context.Context) (gollem.LLMClient, error) {
	return gemini.New(ctx, x.location, x.projectID,
		gemini.WithModel(x.model),
	)
}

func (x *Gemini) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("projectID", x.projectID),
		slog.Any("location", x.location),
		slog.Any("model", x.model),
	)
}
