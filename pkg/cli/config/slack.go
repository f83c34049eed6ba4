package config

import (
	"log/slog"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/notify"
	"github.com/urfave/cli/v3"
)

// Slack holds Slack notification configuration
type Slack struct {
	token   types.SlackToken `masq:"secret"`
	channel string
}

// Flags returns CLI flags for Slack configuration
func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-token",
			Usage:       "Slack bot token",
			Category:    "Slack",
			Destination: (*string)(&x.token),
			Sources:     cli.EnvVars("DROVER_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel for run notifications",
			Category:    "Slack",
			Destination: &x.channel,
			Sources:     cli.EnvVars("DROVER_SLACK_CHANNEL"),
		},
	}
}

// Enabled reports whether Slack notification is configured
func (x *Slack) Enabled() bool {
	return x.token != "" && x.channel != ""
}

// NewNotifier builds a Slack notifier
func (x *Slack) NewNotifier() interfaces.Notifier {
	return notify.NewSlack(x.token, x.channel)
}

func (x *Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("token.len", len(x.token)),
		slog.Any("channel", x.channel),
	)
}
