package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

type instrumentedVectorStore struct {
	provider string
	inner    vectorstore.Store
	metrics  *observability.Metrics
}

func instrumentVectorStore(provider string, inner vectorstore.Store) vectorstore.Store {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		provider: provider,
		inner:    inner,
		metrics:  observability.Current(),
	}
}

func (s *instrumentedVectorStore) Put(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	start := time.Now()
	err := s.inner.Put(ctx, documentID, chunks)
	s.observe("put", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) Replace(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	start := time.Now()
	err := s.inner.Replace(ctx, documentID, chunks)
	s.observe("replace", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) Query(ctx context.Context, documentID uuid.UUID, vector []float32, k int) ([]documents.ScoredChunk, error) {
	start := time.Now()
	out, err := s.inner.Query(ctx, documentID, vector, k)
	s.observe("query", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorStore) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	start := time.Now()
	err := s.inner.DeleteDocument(ctx, documentID)
	s.observe("delete_document", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorStoreOperation(s.provider, operation, status, dur)
}
