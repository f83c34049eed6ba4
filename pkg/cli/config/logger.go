package config

import (
	"log/slog"

	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Logger holds logger configuration
type Logger struct {
	level  string
	format string
	output string
}

// Flags returns CLI flags for logger configuration
func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Destination: &x.level,
			Sources:     cli.EnvVars("DROVER_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (text, json)",
			Category:    "Logging",
			Value:       "text",
			Destination: &x.format,
			Sources:     cli.EnvVars("DROVER_LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output destination (stdout, stderr, or a file path)",
			Category:    "Logging",
			Value:       "stdout",
			Destination: &x.output,
			Sources:     cli.EnvVars("DROVER_LOG_OUTPUT"),
		},
	}
}

// Configure applies the configuration to the default logger
func (x *Logger) Configure() error {
	return logging.Configure(x.format, x.level, x.output)
}

func (x *Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("level", x.level),
		slog.Any("format", x.format),
		slog.Any("output", x.output),
	)
}
