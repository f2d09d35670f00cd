package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

func TestHTTPFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer srv.Close()

	f := NewHTTP(newTestLogger(t), HTTPConfig{})
	data, err := f.Fetch(context.Background(), srv.URL+"/a.pdf")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("body: got=%q", string(data))
	}
}

func TestHTTPFetchNotFoundIsStatusError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewHTTP(newTestLogger(t), HTTPConfig{MaxAttempts: 3, Backoff: time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL+"/missing.pdf")
	var de *documents.Error
	if !errors.As(err, &de) {
		t.Fatalf("want *documents.Error got=%T (%v)", err, err)
	}
	if de.Kind != documents.KindFetch || de.StatusCode != http.StatusNotFound || de.Code != "http_status" {
		t.Fatalf("error: got kind=%s code=%s status=%d", de.Kind, de.Code, de.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("404 must not be retried: calls=%d", got)
	}
}

func TestHTTPFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTP(newTestLogger(t), HTTPConfig{MaxAttempts: 2, Backoff: time.Millisecond})
	data, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "ok" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("retry: body=%q calls=%d", string(data), calls)
	}
}

func TestHTTPFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	f := NewHTTP(newTestLogger(t), HTTPConfig{MaxAttempts: 1})
	_, err := f.Fetch(context.Background(), addr)
	var de *documents.Error
	if !errors.As(err, &de) || de.Code != "transport" || de.StatusCode != 0 {
		t.Fatalf("want transport fetch error, got=%v", err)
	}
}

func TestHTTPFetchEnforcesSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 32))
	}))
	defer srv.Close()

	f := NewHTTP(newTestLogger(t), HTTPConfig{MaxBytes: 16})
	_, err := f.Fetch(context.Background(), srv.URL)
	var de *documents.Error
	if !errors.As(err, &de) || de.Code != "too_large" {
		t.Fatalf("want too_large, got=%v", err)
	}
}

func TestMuxDispatchesOnScheme(t *testing.T) {
	httpF := &recordingFetcher{data: []byte("http")}
	gcsF := &recordingFetcher{data: []byte("gcs")}
	m := &Mux{HTTP: httpF, GCS: gcsF}

	if data, _ := m.Fetch(context.Background(), "https://example.com/a.pdf"); string(data) != "http" {
		t.Fatalf("https: got=%q", string(data))
	}
	if data, _ := m.Fetch(context.Background(), "gs://bucket/a.pdf"); string(data) != "gcs" {
		t.Fatalf("gs: got=%q", string(data))
	}
	_, err := m.Fetch(context.Background(), "ftp://example.com/a.pdf")
	var de *documents.Error
	if !errors.As(err, &de) || de.Code != "unsupported_scheme" {
		t.Fatalf("ftp: want unsupported_scheme got=%v", err)
	}
}

func TestGCSFetchMapsMissingObjectTo404(t *testing.T) {
	f := NewGCS(fakeObjects{err: fmt.Errorf("read: %w", storage.ErrObjectNotExist)}, 0)
	_, err := f.Fetch(context.Background(), "gs://docs/contracts/a.pdf")
	var de *documents.Error
	if !errors.As(err, &de) || de.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 fetch error, got=%v", err)
	}
}

func TestGCSFetchParsesBucketAndKey(t *testing.T) {
	objs := fakeObjects{data: []byte("pdf")}
	f := NewGCS(&objs, 0)
	if _, err := f.Fetch(context.Background(), "gs://docs/contracts/a.pdf"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := f.Fetch(context.Background(), "gs://docs"); !documents.IsKind(err, documents.KindFetch) {
		t.Fatalf("missing key: want fetch error got=%v", err)
	}
}

type recordingFetcher struct{ data []byte }

func (f *recordingFetcher) Fetch(context.Context, string) ([]byte, error) { return f.data, nil }

type fakeObjects struct {
	data []byte
	err  error
}

func (f fakeObjects) ReadObject(_ context.Context, bucket, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if bucket != "docs" || key != "contracts/a.pdf" {
		return nil, fmt.Errorf("unexpected object %s/%s", bucket, key)
	}
	return f.data, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}
