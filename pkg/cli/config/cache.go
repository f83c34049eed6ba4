package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/drover/pkg/infra/cache"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Cache holds build cache storage configuration
type Cache struct {
	backend   string
	dir       string
	gcsBucket string
	gcsPrefix string
}

// Flags returns CLI flags for cache configuration
func (x *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-backend",
			Usage:       "Cache backend (none, local, gcs)",
			Category:    "Cache",
			Value:       "none",
			Destination: &x.backend,
			Sources:     cli.EnvVars("DROVER_CACHE_BACKEND"),
		},
		&cli.StringFlag{
			Name:        "cache-dir",
			Usage:       "Directory for the local cache backend",
			Category:    "Cache",
			Destination: &x.dir,
			Sources:     cli.EnvVars("DROVER_CACHE_DIR"),
		},
		&cli.StringFlag{
			Name:        "cache-gcs-bucket",
			Usage:       "GCS bucket for the gcs cache backend",
			Category:    "Cache",
			Destination: &x.gcsBucket,
			Sources:     cli.EnvVars("DROVER_CACHE_GCS_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "cache-gcs-prefix",
			Usage:       "Object name prefix for the gcs cache backend",
			Category:    "Cache",
			Value:       "drover",
			Destination: &x.gcsPrefix,
			Sources:     cli.EnvVars("DROVER_CACHE_GCS_PREFIX"),
		},
	}
}

// Enabled reports whether a cache backend is configured
func (x *Cache) Enabled() bool {
	return x.backend != "" && x.backend != "none"
}

// NewStore builds the configured cache store. It returns nil when caching is
// disabled.
func (x *Cache) NewStore(ctx context.Context) (interfaces.CacheStore, error) {
	switch x.backend {
	case "", "none":
		return nil, nil

	case "local":
		if x.dir == "" {
			return nil, goerr.Wrap(types.ErrInvalidOption, "cache-dir is required for the local backend")
		}
		return cache.NewLocal(x.dir), nil

	case "gcs":
		if x.gcsBucket == "" {
			return nil, goerr.Wrap(types.ErrInvalidOption, "cache-gcs-bucket is required for the gcs backend")
		}
		return cache.NewGCS(ctx, x.gcsBucket, x.gcsPrefix)

	default:
		return nil, goerr.Wrap(types.ErrInvalidOption, "invalid cache backend, should be 'none', 'local' or 'gcs'",
			goerr.V("value", x.backend),
		)
	}
}

func (x *Cache) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("backend", x.backend),
		slog.Any("dir", x.dir),
		slog.Any("gcsBucket", x.gcsBucket),
		slog.Any("gcsPrefix", x.gcsPrefix),
	)
}
