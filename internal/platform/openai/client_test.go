package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

func TestEmbedPlacesVectorsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Fatalf("path: want=/v1/embeddings got=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("auth header: got=%q", got)
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "text-embedding-3-small" || len(req.Input) != 2 {
			t.Fatalf("request: got=%+v", req)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	vecs, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("vectors out of order: got=%v", vecs)
	}
}

func TestEmbedMissingIndexIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("Embed: expected error for missing index")
	}
}

func TestGenerateTextRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
			return
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.Input) != 2 || req.Input[0].Role != "system" || req.Input[1].Content != "question" {
			t.Fatalf("request input: got=%+v", req.Input)
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"reasoning"},{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Dogs are loyal."}]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	start := time.Now()
	text, err := c.GenerateText(context.Background(), "system", "question")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "Dogs are loyal." {
		t.Fatalf("text: got=%q", text)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("retry slept too long")
	}
}

func TestGenerateTextClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.GenerateText(context.Background(), "s", "u")
	herr, ok := err.(*openAIHTTPError)
	if !ok || herr.HTTPStatusCode() != http.StatusBadRequest {
		t.Fatalf("want openAIHTTPError 400, got=%v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(newTestLogger(t), Config{}); err == nil {
		t.Fatalf("New: expected error without api key")
	}
}

func newTestClient(t *testing.T, baseURL string, retries int) Client {
	t.Helper()
	c, err := New(newTestLogger(t), Config{
		APIKey:     "sk-test",
		BaseURL:    baseURL,
		Model:      "gpt-test",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}
