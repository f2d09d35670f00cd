package vectorstore

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
)

func TestMemoryQueryOrdersByDistanceAndScopesToDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	doc := uuid.New()
	other := uuid.New()

	if err := s.Put(ctx, doc, []documents.Chunk{
		{DocumentID: doc, Index: 0, Page: 1, Content: "far", Embedding: []float32{0, 1}},
		{DocumentID: doc, Index: 1, Page: 2, Content: "near", Embedding: []float32{1, 0}},
		{DocumentID: doc, Index: 2, Page: 2, Content: "mid", Embedding: []float32{1, 1}},
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, other, []documents.Chunk{
		{DocumentID: other, Index: 0, Page: 1, Content: "other", Embedding: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("Put other: %v", err)
	}

	got, err := s.Query(ctx, doc, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("results: want=3 got=%d", len(got))
	}
	wantOrder := []string{"near", "mid", "far"}
	for i, w := range wantOrder {
		if got[i].Chunk.Content != w {
			t.Fatalf("rank %d: want=%s got=%s", i, w, got[i].Chunk.Content)
		}
		if i > 0 && got[i].Distance < got[i-1].Distance {
			t.Fatalf("distances not ascending at %d", i)
		}
	}
}

func TestMemoryQueryRespectsK(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	doc := uuid.New()
	chunks := make([]documents.Chunk, 0, 10)
	for i := 0; i < 10; i++ {
		chunks = append(chunks, documents.Chunk{DocumentID: doc, Index: i, Page: 1, Embedding: []float32{float32(i + 1), 1}})
	}
	if err := s.Put(ctx, doc, chunks); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Query(ctx, doc, []float32{1, 0}, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("k: want=4 got=%d", len(got))
	}
	if _, err := s.Query(ctx, doc, []float32{1, 0}, 0); !documents.IsKind(err, documents.KindValidation) {
		t.Fatalf("k=0: want validation error got=%v", err)
	}
}

func TestMemoryPutIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	doc := uuid.New()
	err := s.Put(ctx, doc, []documents.Chunk{
		{DocumentID: doc, Index: 0, Embedding: []float32{1, 0}},
		{DocumentID: doc, Index: 1, Embedding: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatalf("Put: expected dimension error")
	}
	if s.Len(doc) != 0 {
		t.Fatalf("partial write: len=%d", s.Len(doc))
	}
}

func TestMemoryReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	doc := uuid.New()
	_ = s.Put(ctx, doc, []documents.Chunk{{DocumentID: doc, Index: 0, Embedding: []float32{1}}, {DocumentID: doc, Index: 1, Embedding: []float32{1}}})
	if err := s.Replace(ctx, doc, []documents.Chunk{{DocumentID: doc, Index: 0, Embedding: []float32{1}}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if s.Len(doc) != 1 {
		t.Fatalf("after replace: want=1 got=%d", s.Len(doc))
	}
	if err := s.DeleteDocument(ctx, doc); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	got, err := s.Query(ctx, doc, []float32{1}, 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("after delete: got=%v err=%v", got, err)
	}
}

func TestMemoryQueryRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	doc := uuid.New()
	if err := s.Put(ctx, doc, []documents.Chunk{{DocumentID: doc, Index: 0, Page: 1, Embedding: []float32{1, 0, 0, 0}}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Query(ctx, doc, []float32{1, 0, 0, 0, 0, 0, 0, 0}, 5)
	if !documents.IsKind(err, documents.KindValidation) {
		t.Fatalf("want validation error got=%v", err)
	}
	if got != nil {
		t.Fatalf("results on mismatch: got=%v", got)
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Fatalf("identical: want=0 got=%v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{-1, 0}); math.Abs(d-2) > 1e-9 {
		t.Fatalf("opposite: want=2 got=%v", d)
	}
	if d := CosineDistance([]float32{1}, []float32{1, 0}); !math.IsInf(d, 1) {
		t.Fatalf("mismatched dims: want=+Inf got=%v", d)
	}
}
