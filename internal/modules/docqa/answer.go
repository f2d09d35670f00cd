package docqa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/dbctx"
)

// Answer retrieves the nearest chunks of one document and synthesizes a
// grounded answer. It never changes document state.
func (s *Service) Answer(ctx context.Context, documentID uuid.UUID, question string) (ans documents.Answer, err error) {
	ctx, span := observability.StartSpan(ctx, "docqa.answer", attribute.String("document_id", documentID.String()))
	defer func() { observability.EndSpan(span, err) }()

	question = strings.TrimSpace(question)
	if documentID == uuid.Nil {
		return documents.Answer{}, documents.ValidationError("answer", errors.New("documentId is required"))
	}
	if question == "" {
		return documents.Answer{}, documents.ValidationError("answer", errors.New("question is required"))
	}

	doc, err := s.docs.GetByID(dbctx.New(ctx), documentID)
	if err != nil {
		observability.Current().IncAnswer("error")
		return documents.Answer{}, documents.RetrievalError("answer", "document_lookup", err)
	}
	if !doc.Indexed() {
		observability.Current().IncAnswer("no_content")
		return noContentAnswer(), nil
	}

	vec, err := s.embedQuestion(ctx, question)
	if err != nil {
		observability.Current().IncAnswer("error")
		return documents.Answer{}, documents.RetrievalError("answer", "embedding", err)
	}
	if doc.EmbeddingDim > 0 && len(vec) != doc.EmbeddingDim {
		observability.Current().IncAnswer("error")
		return documents.Answer{}, documents.RetrievalError("answer", "dimension_mismatch",
			fmt.Errorf("question embedding has dimension %d, document was indexed with %d", len(vec), doc.EmbeddingDim))
	}

	hits, err := s.vectors.Query(ctx, documentID, vec, s.cfg.TopK)
	if err != nil {
		observability.Current().IncAnswer("error")
		return documents.Answer{}, documents.RetrievalError("answer", "vector_query", err)
	}
	if len(hits) == 0 {
		observability.Current().IncAnswer("no_content")
		return noContentAnswer(), nil
	}

	system, user, err := s.prompts.Render(question, BuildContext(hits))
	if err != nil {
		observability.Current().IncAnswer("error")
		return documents.Answer{}, documents.RetrievalError("answer", "prompt", err)
	}
	text, err := s.synth.GenerateText(ctx, system, user)
	if err != nil {
		observability.Current().IncAnswer("error")
		return documents.Answer{}, documents.RetrievalError("answer", "synthesis", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		observability.Current().IncAnswer("error")
		return documents.Answer{}, documents.RetrievalError("answer", "synthesis", errors.New("synthesizer returned empty text"))
	}

	observability.Current().IncAnswer("answered")
	return documents.Answer{
		SummarizedAnswer: text,
		RecommendedPages: RecommendedPages(hits),
	}, nil
}

func (s *Service) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	model := s.embed.EmbedModel()
	if s.cache != nil {
		vec, ok, err := s.cache.Get(ctx, model, question)
		if err != nil {
			s.log.Warn("question embedding cache lookup failed", "error", err)
		} else if ok {
			return vec, nil
		}
	}
	vecs, err := s.embed.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("expected one non-empty embedding, got %d", len(vecs))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, model, question, vecs[0]); err != nil {
			s.log.Warn("question embedding cache write failed", "error", err)
		}
	}
	return vecs[0], nil
}

func noContentAnswer() documents.Answer {
	return documents.Answer{SummarizedAnswer: documents.NoContentAnswer, RecommendedPages: []int{}}
}

// BuildContext joins the hits in rank order, each tagged with its page.
func BuildContext(hits []documents.ScoredChunk) string {
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d]\n%s", h.Chunk.Page, strings.TrimSpace(h.Chunk.Content))
	}
	return b.String()
}

// RecommendedPages lists pages in first-seen rank order without duplicates.
func RecommendedPages(hits []documents.ScoredChunk) []int {
	out := make([]int, 0, len(hits))
	seen := make(map[int]struct{}, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.Chunk.Page]; ok {
			continue
		}
		seen[h.Chunk.Page] = struct{}{}
		out = append(out, h.Chunk.Page)
	}
	return out
}
