package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/utils/archive"
	"github.com/m-mizutani/drover/pkg/utils/logging"
	"github.com/m-mizutani/drover/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a cache store backed by a Google Cloud Storage bucket.
// Archives are stored as "<prefix>/<key>.zip" objects.
func NewGCS(ctx context.Context, bucket, prefix string) (interfaces.CacheStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCS client", goerr.V("bucket", bucket))
	}

	return &gcsStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *gcsStore) objectName(key string) string {
	return path.Join(s.prefix, key+".zip")
}

func (s *gcsStore) Restore(ctx context.Context, key string, destDir string) (bool, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))

	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to open cache object",
			goerr.V("bucket", s.bucket),
			goerr.V("object", s.objectName(key)),
		)
	}
	defer safe.Close(r)

	data, err := io.ReadAll(r)
	if err != nil {
		return false, goerr.Wrap(err, "failed to read cache object", goerr.V("key", key))
	}

	files, size, err := archive.Unpack(data, destDir)
	if err != nil {
		return false, goerr.Wrap(err, "failed to unpack cache archive", goerr.V("key", key))
	}

	logging.From(ctx).Debug("restored cache from GCS",
		"key", key,
		"file_count", len(files),
		"total_size", size,
	)

	return true, nil
}

func (s *gcsStore) Save(ctx context.Context, key string, baseDir string, paths []string) error {
	data, err := archive.Pack(baseDir, paths)
	if err != nil {
		return goerr.Wrap(err, "failed to pack cache archive", goerr.V("key", key))
	}

	w := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write cache object",
			goerr.V("bucket", s.bucket),
			goerr.V("object", s.objectName(key)),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize cache object", goerr.V("key", key))
	}

	logging.From(ctx).Debug("saved cache to GCS", "key", key, "size", len(data))

	return nil
}
