package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/httpx"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

type HTTPConfig struct {
	Timeout     time.Duration
	MaxBytes    int64
	MaxAttempts int
	Backoff     time.Duration
}

type HTTPFetcher struct {
	log  *logger.Logger
	cfg  HTTPConfig
	http *http.Client
}

func NewHTTP(log *logger.Logger, cfg HTTPConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return &HTTPFetcher{
		log:  log.With("service", "HTTPFetcher"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string       { return fmt.Sprintf("http status %d: %s", e.status, e.body) }
func (e *statusError) HTTPStatusCode() int { return e.status }

func (f *HTTPFetcher) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := httpx.JitterSleep(httpx.Backoff(f.cfg.Backoff, 10*time.Second, attempt-1))
			f.log.Warn("Fetch retrying", "url", sourceURL, "attempt", attempt+1, "sleep", wait.String(), "error", lastErr)
			if err := httpx.Sleep(ctx, wait); err != nil {
				return nil, documents.FetchTransportError("fetch", err)
			}
		}
		data, err := f.fetchOnce(ctx, sourceURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) {
			break
		}
	}
	return nil, classify(lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{status: resp.StatusCode, body: string(snippet)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, tooLarge(f.cfg.MaxBytes)
	}
	return data, nil
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var de *documents.Error
	if errors.As(err, &de) {
		return err
	}
	var se *statusError
	if errors.As(err, &se) {
		return documents.FetchStatusError("fetch", se.status, se)
	}
	return documents.FetchTransportError("fetch", err)
}
