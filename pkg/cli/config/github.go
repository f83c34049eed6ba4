package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub App configuration
type GitHub struct {
	appID          types.GitHubAppID
	installationID types.GitHubAppInstallID
	privateKey     types.GitHubAppPrivateKey `masq:"secret"`
	privateKeyFile string
	webhookSecret  types.GitHubAppSecret `masq:"secret"`
}

// Flags returns CLI flags for GitHub App configuration
func (x *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Category:    "GitHub App",
			Destination: (*int64)(&x.appID),
			Sources:     cli.EnvVars("DROVER_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Category:    "GitHub App",
			Destination: (*int64)(&x.installationID),
			Sources:     cli.EnvVars("DROVER_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key (PEM)",
			Category:    "GitHub App",
			Destination: (*string)(&x.privateKey),
			Sources:     cli.EnvVars("DROVER_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-private-key-file",
			Usage:       "Path to GitHub App private key file",
			Category:    "GitHub App",
			Destination: &x.privateKeyFile,
			Sources:     cli.EnvVars("DROVER_GITHUB_PRIVATE_KEY_FILE"),
		},
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Category:    "GitHub App",
			Destination: (*string)(&x.webhookSecret),
			Sources:     cli.EnvVars("DROVER_GITHUB_WEBHOOK_SECRET"),
		},
	}
}

// Enabled reports whether GitHub App credentials are configured
func (x *GitHub) Enabled() bool {
	return x.appID != 0
}

// WebhookSecret returns the webhook secret
func (x *GitHub) WebhookSecret() types.GitHubAppSecret {
	return x.webhookSecret
}

// NewClient builds a GitHub client from the App credentials
func (x *GitHub) NewClient() (interfaces.GitHubClient, error) {
	key := []byte(x.privateKey)
	if len(key) == 0 && x.privateKeyFile != "" {
		data, err := os.ReadFile(filepath.Clean(x.privateKeyFile))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read private key file",
				goerr.V("path", x.privateKeyFile),
			)
		}
		key = data
	}
	if len(key) == 0 {
		return nil, goerr.New("GitHub App private key is not configured")
	}

	return github.NewClient(x.appID, x.installationID, key)
}

func (x *GitHub) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("appID", int64(x.appID)),
		slog.Int64("installationID", int64(x.installationID)),
		slog.Int("privateKey.len", len(x.privateKey)),
		slog.Any("privateKeyFile", x.privateKeyFile),
		slog.Int("webhookSecret.len", len(x.webhookSecret)),
	)
}
