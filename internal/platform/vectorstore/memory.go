package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
)

// Memory is an in-process Store using brute-force cosine distance.
type Memory struct {
	mu   sync.RWMutex
	docs map[uuid.UUID][]documents.Chunk
}

func NewMemory() *Memory {
	return &Memory{docs: map[uuid.UUID][]documents.Chunk{}}
}

func (m *Memory) Put(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ValidateChunks(documentID, chunks); err != nil {
		return err
	}
	cp := cloneChunks(chunks)
	m.mu.Lock()
	m.docs[documentID] = append(m.docs[documentID], cp...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Replace(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ValidateChunks(documentID, chunks); err != nil {
		return err
	}
	cp := cloneChunks(chunks)
	m.mu.Lock()
	if len(cp) == 0 {
		delete(m.docs, documentID)
	} else {
		m.docs[documentID] = cp
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Query(ctx context.Context, documentID uuid.UUID, vector []float32, k int) ([]documents.ScoredChunk, error) {
	if err := ValidateQuery(vector, k); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	chunks := m.docs[documentID]
	out := make([]documents.ScoredChunk, 0, len(chunks))
	for _, ch := range chunks {
		if len(ch.Embedding) != len(vector) {
			m.mu.RUnlock()
			return nil, documents.ValidationError("vector_query",
				fmt.Errorf("query dimension %d differs from stored dimension %d", len(vector), len(ch.Embedding)))
		}
		out = append(out, documents.ScoredChunk{Chunk: ch, Distance: CosineDistance(vector, ch.Embedding)})
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].Chunk.Index < out[j].Chunk.Index
		}
		return out[i].Distance < out[j].Distance
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *Memory) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	m.mu.Lock()
	delete(m.docs, documentID)
	m.mu.Unlock()
	return nil
}

// Len reports how many chunks are stored for a document.
func (m *Memory) Len(documentID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[documentID])
}

// Chunks returns a copy of a document's chunks ordered by index.
func (m *Memory) Chunks(documentID uuid.UUID) []documents.Chunk {
	m.mu.RLock()
	out := cloneChunks(m.docs[documentID])
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func cloneChunks(in []documents.Chunk) []documents.Chunk {
	out := make([]documents.Chunk, len(in))
	for i, ch := range in {
		ch.Embedding = append([]float32(nil), ch.Embedding...)
		out[i] = ch
	}
	return out
}
