package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/utils/archive"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

type localStore struct {
	dir string
}

// NewLocal creates a cache store backed by a local directory. One archive is
// kept per key; keys are path-safe because pipeline names and cache prefixes
// reject path separators at validation.
func NewLocal(dir string) interfaces.CacheStore {
	return &localStore{dir: dir}
}

func (s *localStore) archivePath(key string) string {
	return filepath.Join(s.dir, key+".zip")
}

// Restore unpacks the archive for key into destDir. A missing archive is a
// cache miss, not an error.
func (s *localStore) Restore(ctx context.Context, key string, destDir string) (bool, error) {
	data, err := os.ReadFile(s.archivePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to read cache archive", goerr.V("key", key))
	}

	files, size, err := archive.Unpack(data, destDir)
	if err != nil {
		return false, goerr.Wrap(err, "failed to unpack cache archive", goerr.V("key", key))
	}

	logging.From(ctx).Debug("restored cache",
		"key", key,
		"file_count", len(files),
		"total_size", size,
	)

	return true, nil
}

// Save archives the paths under key. The archive is written to a temporary
// file and renamed so concurrent restores never see a partial archive.
func (s *localStore) Save(ctx context.Context, key string, baseDir string, paths []string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return goerr.Wrap(err, "failed to create cache directory", goerr.V("dir", s.dir))
	}

	data, err := archive.Pack(baseDir, paths)
	if err != nil {
		return goerr.Wrap(err, "failed to pack cache archive", goerr.V("key", key))
	}

	tmp, err := os.CreateTemp(s.dir, "cache-*.zip.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary cache file")
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to write cache archive", goerr.V("key", key))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close cache archive", goerr.V("key", key))
	}

	if err := os.Rename(tmp.Name(), s.archivePath(key)); err != nil {
		return goerr.Wrap(err, "failed to move cache archive", goerr.V("key", key))
	}

	logging.From(ctx).Debug("saved cache", "key", key, "size", len(data))

	return nil
}
