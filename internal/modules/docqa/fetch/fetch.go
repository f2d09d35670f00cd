package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
)

// Fetcher retrieves the raw bytes of a document. HTTP status failures and
// transport failures are reported as distinct fetch errors.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]byte, error)
}

// Mux dispatches on the URL scheme. A nil entry leaves that scheme unsupported.
type Mux struct {
	HTTP Fetcher
	GCS  Fetcher
}

func (m *Mux) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || u.Scheme == "" {
		return nil, &documents.Error{Kind: documents.KindFetch, Op: "fetch", Code: "invalid_url", Err: fmt.Errorf("invalid source url %q", sourceURL)}
	}
	var f Fetcher
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f = m.HTTP
	case "gs":
		f = m.GCS
	}
	if f == nil {
		return nil, &documents.Error{Kind: documents.KindFetch, Op: "fetch", Code: "unsupported_scheme", Err: fmt.Errorf("no fetcher for scheme %q", u.Scheme)}
	}
	return f.Fetch(ctx, sourceURL)
}

func tooLarge(limit int64) error {
	return &documents.Error{
		Kind: documents.KindFetch,
		Op:   "fetch",
		Code: "too_large",
		Err:  fmt.Errorf("document exceeds %d bytes", limit),
	}
}
