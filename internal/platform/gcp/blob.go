package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/docqa-backend/internal/platform/ctxutil"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

// BlobStore reads uploaded documents from Cloud Storage.
type BlobStore struct {
	log     *logger.Logger
	client  *storage.Client
	timeout time.Duration
}

func NewBlobStore(ctx context.Context, log *logger.Logger) (*BlobStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	st, err := storage.NewClient(ctxutil.Default(ctx), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	slog := log.With("service", "gcp.BlobStore")
	slog.Info("Cloud Storage client initialized")
	return &BlobStore{log: slog, client: st, timeout: 2 * time.Minute}, nil
}

func (b *BlobStore) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), b.timeout)
	defer cancel()

	rc, err := b.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs open %s/%s: %w", bucket, key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("gcs read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

func (b *BlobStore) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist)
}
