package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/gcp"
)

type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// GCSFetcher reads gs://bucket/key URLs. A missing object is reported like an HTTP 404.
type GCSFetcher struct {
	objects  ObjectReader
	maxBytes int64
}

func NewGCS(objects ObjectReader, maxBytes int64) *GCSFetcher {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return &GCSFetcher{objects: objects, maxBytes: maxBytes}
}

func (f *GCSFetcher) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	bucket, key, err := parseGCSURL(sourceURL)
	if err != nil {
		return nil, &documents.Error{Kind: documents.KindFetch, Op: "fetch", Code: "invalid_url", Err: err}
	}
	data, err := f.objects.ReadObject(ctx, bucket, key)
	if err != nil {
		if gcp.IsNotFound(err) {
			return nil, documents.FetchStatusError("fetch", http.StatusNotFound, err)
		}
		return nil, documents.FetchTransportError("fetch", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, tooLarge(f.maxBytes)
	}
	return data, nil
}

func parseGCSURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", err
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "gs" || bucket == "" || key == "" {
		return "", "", fmt.Errorf("expected gs://bucket/key, got %q", raw)
	}
	return bucket, key, nil
}
