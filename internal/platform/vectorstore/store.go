package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
)

// Store persists chunk embeddings and answers nearest-neighbour queries
// scoped to one document. Query results are ordered by ascending distance;
// the distance scale is adapter-defined.
type Store interface {
	// Put writes all chunks of a document or none of them.
	Put(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error
	// Replace swaps the document's chunk set for chunks in one step.
	Replace(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error
	Query(ctx context.Context, documentID uuid.UUID, vector []float32, k int) ([]documents.ScoredChunk, error)
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
}

func ValidateQuery(vector []float32, k int) error {
	if k < 1 {
		return documents.ValidationError("vector_query", fmt.Errorf("k must be >= 1 (got %d)", k))
	}
	if len(vector) == 0 {
		return documents.ValidationError("vector_query", fmt.Errorf("query vector is empty"))
	}
	return nil
}

// ValidateChunks checks ownership, presence of embeddings and a single dimension.
func ValidateChunks(documentID uuid.UUID, chunks []documents.Chunk) (int, error) {
	dim := 0
	for i, ch := range chunks {
		if ch.DocumentID != documentID {
			return 0, documents.ValidationError("vector_put", fmt.Errorf("chunk %d belongs to document %s, not %s", i, ch.DocumentID, documentID))
		}
		if len(ch.Embedding) == 0 {
			return 0, documents.ValidationError("vector_put", fmt.Errorf("chunk %d has no embedding", ch.Index))
		}
		if dim == 0 {
			dim = len(ch.Embedding)
		} else if len(ch.Embedding) != dim {
			return 0, documents.ValidationError("vector_put", fmt.Errorf("chunk %d dimension %d differs from %d", ch.Index, len(ch.Embedding), dim))
		}
	}
	return dim, nil
}

// CosineDistance is 1 - cosine similarity; 0 for identical direction, 2 for opposite.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
