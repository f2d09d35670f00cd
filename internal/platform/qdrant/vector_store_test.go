package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

func TestVectorStorePutRequestShape(t *testing.T) {
	docID := uuid.New()
	chunkID := uuid.New()
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/manuals/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/manuals/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if got := r.Header.Get("api-key"); got != "secret" {
			t.Fatalf("api-key header: want=%q got=%q", "secret", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})
	s.cfg.APIKey = "secret"

	err := s.Put(context.Background(), docID, []documents.Chunk{
		{ID: chunkID, DocumentID: docID, Page: 3, Index: 0, Content: "torque spec", Embedding: []float32{1, 2, 3}},
		{DocumentID: docID, Page: 4, Index: 1, Content: "wiring", Embedding: []float32{4, 5, 6}},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	pointsRaw, ok := captured["points"].([]any)
	if !ok {
		t.Fatalf("points type: got=%T", captured["points"])
	}
	if len(pointsRaw) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(pointsRaw))
	}
	first := pointsRaw[0].(map[string]any)
	if first["id"] != pointID(docID, chunkID) {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload[payloadDocumentIDKey] != docID.String() {
		t.Fatalf("payload document_id: want=%q got=%v", docID.String(), payload[payloadDocumentIDKey])
	}
	if payload[payloadPageKey] != float64(3) {
		t.Fatalf("payload page: want=3 got=%v", payload[payloadPageKey])
	}
	if payload[payloadContentKey] != "torque spec" {
		t.Fatalf("payload content: got=%v", payload[payloadContentKey])
	}
	second := pointsRaw[1].(map[string]any)
	if second["id"] == "" || second["id"] == first["id"] {
		t.Fatalf("second point id should be derived and distinct: got=%v", second["id"])
	}
}

func TestVectorStorePutRejectsDimensionMismatchWithoutRequest(t *testing.T) {
	docID := uuid.New()
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		return nil, nil
	})
	err := s.Put(context.Background(), docID, []documents.Chunk{
		{DocumentID: docID, Index: 0, Page: 1, Embedding: []float32{1, 2}},
	})
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) || opErrTyped.Code != OperationErrorValidation {
		t.Fatalf("expected validation OperationError, got=%v", err)
	}
}

func TestVectorStoreReplaceUsesBatch(t *testing.T) {
	docID := uuid.New()
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/manuals/points/batch" {
			t.Fatalf("path: want=%q got=%q", "/collections/manuals/points/batch", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []any{}), nil
	})
	err := s.Replace(context.Background(), docID, []documents.Chunk{
		{DocumentID: docID, Index: 0, Page: 1, Content: "a", Embedding: []float32{1, 2, 3}},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	ops, ok := captured["operations"].([]any)
	if !ok || len(ops) != 2 {
		t.Fatalf("operations: want=2 got=%v", captured["operations"])
	}
	if _, ok := ops[0].(map[string]any)["delete"]; !ok {
		t.Fatalf("first operation should be delete: %v", ops[0])
	}
	if _, ok := ops[1].(map[string]any)["upsert"]; !ok {
		t.Fatalf("second operation should be upsert: %v", ops[1])
	}
}

func TestVectorStoreQueryFiltersByDocumentAndConvertsScores(t *testing.T) {
	docID := uuid.New()
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=%s got=%s", http.MethodPost, r.Method)
		}
		if r.URL.Path != "/collections/manuals/points/search" {
			t.Fatalf("path: want=%q got=%q", "/collections/manuals/points/search", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{"id": "p-low", "score": 0.10, "payload": map[string]any{"page": 9, "index": 4, "content": "low"}},
			{"id": "p-high", "score": 0.90, "payload": map[string]any{"page": 2, "index": 1, "content": "high"}},
			{"id": "p-bad", "score": 0.95, "payload": map[string]any{"index": 7}},
		}), nil
	})

	got, err := s.Query(context.Background(), docID, []float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results: want=2 got=%d", len(got))
	}
	if got[0].Chunk.Content != "high" || got[1].Chunk.Content != "low" {
		t.Fatalf("order: got=%q,%q", got[0].Chunk.Content, got[1].Chunk.Content)
	}
	if got[0].Chunk.Page != 2 || got[0].Chunk.DocumentID != docID {
		t.Fatalf("chunk fields: got=%+v", got[0].Chunk)
	}
	if d := got[0].Distance; d < 0.099 || d > 0.101 {
		t.Fatalf("distance: want~0.1 got=%v", d)
	}

	if captured["limit"] != float64(5) {
		t.Fatalf("limit: want=5 got=%v", captured["limit"])
	}
	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)
	cond := must[0].(map[string]any)
	if cond["key"] != payloadDocumentIDKey {
		t.Fatalf("filter key: got=%v", cond["key"])
	}
	if cond["match"].(map[string]any)["value"] != docID.String() {
		t.Fatalf("filter value: got=%v", cond["match"])
	}
}

func TestVectorStoreQueryValidation(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request")
		return nil, nil
	})
	if _, err := s.Query(context.Background(), uuid.New(), []float32{1, 2, 3}, 0); !documents.IsKind(err, documents.KindValidation) {
		t.Fatalf("k=0: want validation got=%v", err)
	}
	_, err := s.Query(context.Background(), uuid.New(), []float32{1, 2}, 3)
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) || opErrTyped.Code != OperationErrorValidation {
		t.Fatalf("dim mismatch: want validation OperationError got=%v", err)
	}
}

func TestVectorStoreDeleteDocumentUsesFilter(t *testing.T) {
	docID := uuid.New()
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/manuals/points/delete" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return okResponse(t, map[string]any{"status": "completed"}), nil
	})
	if err := s.DeleteDocument(context.Background(), docID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, ok := captured["filter"]; !ok {
		t.Fatalf("delete body missing filter: %v", captured)
	}
}

func TestVectorStoreHTTPStatusError(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"down"}}`))),
		}, nil
	})
	_, err := s.Query(context.Background(), uuid.New(), []float32{1, 2, 3}, 1)
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErrTyped.StatusCode != http.StatusBadGateway || opErrTyped.Code != OperationErrorQueryFailed {
		t.Fatalf("unexpected error: %+v", opErrTyped)
	}
}

func TestVerifyReadyCreatesMissingCollection(t *testing.T) {
	var calls []string
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/readyz":
			return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader(nil))}, nil
		case r.Method == http.MethodGet && r.URL.Path == "/collections/manuals":
			return &http.Response{StatusCode: http.StatusNotFound, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader([]byte(`{}`)))}, nil
		default:
			return okResponse(t, true), nil
		}
	})
	s.cfg.CreateCollection = true
	s.distance = ""
	if err := s.verifyReady(context.Background()); err != nil {
		t.Fatalf("verifyReady: %v", err)
	}
	want := []string{"GET /readyz", "GET /collections/manuals", "PUT /collections/manuals", "PUT /collections/manuals/index"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("calls: want=%v got=%v", want, calls)
	}
	if s.distance != "Cosine" {
		t.Fatalf("distance: want=Cosine got=%q", s.distance)
	}
}

func TestVerifyReadyRejectsSizeMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/readyz" {
			return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader(nil))}, nil
		}
		return okResponse(t, map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 8, "distance": "Cosine"}}},
		}), nil
	})
	err := s.verifyReady(context.Background())
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) || opErrTyped.Code != OperationErrorValidation {
		t.Fatalf("expected validation error, got=%v", err)
	}
}

func TestScoreToDistance(t *testing.T) {
	s := &VectorStore{distance: "Euclid"}
	if d := s.scoreToDistance(2.5); d != 2.5 {
		t.Fatalf("euclid: want=2.5 got=%v", d)
	}
	s.distance = "Dot"
	if d := s.scoreToDistance(3); d != -3 {
		t.Fatalf("dot: want=-3 got=%v", d)
	}
	s.distance = "Cosine"
	if d := s.scoreToDistance(1); d != 0 {
		t.Fatalf("cosine: want=0 got=%v", d)
	}
}

func TestClassifyHTTPCallErrorTimeout(t *testing.T) {
	err := classifyHTTPCallError("query", "timeout", context.DeadlineExceeded)
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErrTyped.Code != OperationErrorTimeout {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTimeout, opErrTyped.Code)
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("query", "transport", fmt.Errorf("boom"))
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErrTyped.Code != OperationErrorTransportFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTransportFailed, opErrTyped.Code)
	}
}

func newTestVectorStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *VectorStore {
	t.Helper()
	return &VectorStore{
		log:      newTestLogger(t),
		cfg:      Config{Collection: "manuals", VectorDim: 3},
		baseURL:  "http://qdrant.local",
		http:     &http.Client{Transport: roundTripFunc(roundTrip)},
		distance: "Cosine",
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	payload := map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
