package docqa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/docqa-backend/internal/data/dberr"
	repos "github.com/yungbote/docqa-backend/internal/data/repos/documents"
	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/extractor"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/dbctx"
)

type IngestRequest struct {
	SourceURL   string    `json:"sourceUrl"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	OwnerUserID uuid.UUID `json:"ownerUserId"`
}

// source is the fetched and extracted form of a document, before chunking.
type source struct {
	pages     []string
	sha256    string
	extractor string
	empty     int
}

// Ingest fetches, extracts, chunks, embeds and stores a document. On failure
// after the row exists, the returned Document is non-nil and marked failed.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (doc *documents.Document, err error) {
	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "docqa.ingest", attribute.String("source_url", req.SourceURL))
	defer func() {
		observability.EndSpan(span, err)
		s.recordOutcome(err)
	}()

	req.SourceURL = strings.TrimSpace(req.SourceURL)
	if req.SourceURL == "" {
		return nil, documents.ValidationError("ingest", errors.New("sourceUrl is required"))
	}
	if req.OwnerUserID == uuid.Nil {
		return nil, documents.InvalidOwnerError("ingest", errors.New("ownerUserId is required"))
	}

	companyID, err := s.resolveOwner(ctx, req.OwnerUserID)
	if err != nil {
		return nil, err
	}

	src, err := s.load(ctx, req.SourceURL)
	if err != nil {
		return nil, err
	}

	doc = &documents.Document{
		SourceURL:      req.SourceURL,
		Title:          strings.TrimSpace(req.Title),
		Category:       strings.TrimSpace(req.Category),
		OwnerCompanyID: companyID,
		OwnerUserID:    req.OwnerUserID,
		Status:         documents.StatusPending,
		PageCount:      len(src.pages),
		ContentSHA256:  src.sha256,
	}
	if err := s.docs.Create(dbctx.New(ctx), doc); err != nil {
		return nil, documents.PersistenceError("create_document", err)
	}
	span.SetAttributes(attribute.String("document_id", doc.ID.String()))
	log := s.log.With("document_id", doc.ID.String())
	log.Info("document created", "pages", len(src.pages), "extractor", src.extractor)

	if err := s.index(ctx, doc, src, false); err != nil {
		return doc, err
	}
	log.Info("document indexed", "chunks", doc.ChunkCount, "dim", doc.EmbeddingDim, "elapsed", time.Since(started).String())
	return doc, nil
}

// Reingest rebuilds a document's chunks from its source URL and swaps them in.
func (s *Service) Reingest(ctx context.Context, documentID uuid.UUID) (doc *documents.Document, err error) {
	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "docqa.reingest", attribute.String("document_id", documentID.String()))
	defer func() {
		observability.EndSpan(span, err)
		s.recordOutcome(err)
	}()

	doc, err = s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.docs.MarkPending(dbctx.New(ctx), doc.ID); err != nil {
		return nil, documents.PersistenceError("mark_pending", err)
	}
	doc.Status = documents.StatusPending
	doc.FailureKind, doc.FailureReason = "", ""

	src, err := s.load(ctx, doc.SourceURL)
	if err != nil {
		s.fail(ctx, doc, err)
		return doc, err
	}
	doc.PageCount = len(src.pages)
	if err := s.index(ctx, doc, src, true); err != nil {
		return doc, err
	}
	s.log.Info("document reindexed", "document_id", doc.ID.String(), "chunks", doc.ChunkCount, "elapsed", time.Since(started).String())
	return doc, nil
}

func (s *Service) Get(ctx context.Context, documentID uuid.UUID) (*documents.Document, error) {
	if documentID == uuid.Nil {
		return nil, documents.ValidationError("get_document", errors.New("document id is required"))
	}
	doc, err := s.docs.GetByID(dbctx.New(ctx), documentID)
	if err != nil {
		return nil, documents.PersistenceError("get_document", err)
	}
	if doc == nil {
		return nil, documents.NotFoundError("get_document", fmt.Errorf("document %s not found", documentID))
	}
	return doc, nil
}

// Delete removes the document's chunks from the vector store, then the row.
func (s *Service) Delete(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.vectors.DeleteDocument(ctx, doc.ID); err != nil {
		return documents.PersistenceError("delete_chunks", err)
	}
	if err := s.docs.Delete(dbctx.New(ctx), doc.ID); err != nil {
		if dberr.IsNotFound(err) {
			return documents.NotFoundError("delete_document", err)
		}
		return documents.PersistenceError("delete_document", err)
	}
	s.log.Info("document deleted", "document_id", doc.ID.String())
	return nil
}

func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]*documents.Document, error) {
	if companyID == uuid.Nil {
		return nil, documents.ValidationError("list_documents", errors.New("company id is required"))
	}
	out, err := s.docs.ListByCompany(dbctx.New(ctx), companyID, limit)
	if err != nil {
		return nil, documents.PersistenceError("list_documents", err)
	}
	return out, nil
}

func (s *Service) resolveOwner(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	companyID, err := s.owners.CompanyIDForUser(dbctx.New(ctx), userID)
	if err != nil {
		if dberr.IsNotFound(err) {
			return uuid.Nil, documents.InvalidOwnerError("resolve_owner", err)
		}
		return uuid.Nil, documents.PersistenceError("resolve_owner", err)
	}
	return companyID, nil
}

// load fetches and extracts; nothing is persisted here.
func (s *Service) load(ctx context.Context, sourceURL string) (source, error) {
	var data []byte
	err := s.stage(ctx, "fetch", func(ctx context.Context) error {
		var err error
		data, err = s.fetcher.Fetch(ctx, sourceURL)
		if err != nil && documents.KindOf(err) == "" {
			err = documents.FetchTransportError("fetch", err)
		}
		return err
	})
	if err != nil {
		return source{}, err
	}

	var res extractor.Result
	err = s.stage(ctx, "extract", func(ctx context.Context) error {
		var err error
		res, err = s.extract.Extract(ctx, data)
		if err != nil && documents.KindOf(err) == "" {
			err = documents.ExtractionError("extract", "failed", err)
		}
		return err
	})
	if err != nil {
		return source{}, err
	}

	sum := sha256.Sum256(data)
	return source{
		pages:     res.Pages,
		sha256:    hex.EncodeToString(sum[:]),
		extractor: res.Source,
		empty:     res.EmptyPages,
	}, nil
}

// index chunks, embeds and stores src for doc, then marks it indexed.
// Any failure marks the document failed and removes partial chunks.
func (s *Service) index(ctx context.Context, doc *documents.Document, src source, replace bool) error {
	chunks := s.buildChunks(doc.ID, src.pages)
	if len(chunks) == 0 {
		s.log.Warn("document has no extractable text", "document_id", doc.ID.String(), "pages", len(src.pages))
	}

	var dim int
	err := s.stage(ctx, "embed", func(ctx context.Context) error {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Content
		}
		vecs, d, err := s.pool.EmbedAll(ctx, texts)
		if err != nil {
			return err
		}
		if err := s.checkCorpusDim(ctx, doc.ID, d); err != nil {
			return err
		}
		for i := range chunks {
			chunks[i].Embedding = vecs[i]
		}
		dim = d
		return nil
	})
	if err != nil {
		s.fail(ctx, doc, err)
		return err
	}

	err = s.stage(ctx, "persist", func(ctx context.Context) error {
		var err error
		if replace {
			err = s.vectors.Replace(ctx, doc.ID, chunks)
		} else {
			err = s.vectors.Put(ctx, doc.ID, chunks)
		}
		if err != nil {
			return documents.PersistenceError("store_chunks", err)
		}
		upd := repos.IndexedUpdate{
			PageCount:      len(src.pages),
			ChunkCount:     len(chunks),
			EmbeddingModel: s.embed.EmbedModel(),
			EmbeddingDim:   dim,
			ContentSHA256:  src.sha256,
			Metadata:       extractionMetadata(src),
		}
		if err := s.docs.MarkIndexed(dbctx.New(ctx), doc.ID, upd); err != nil {
			return documents.PersistenceError("mark_indexed", err)
		}
		doc.Status = documents.StatusIndexed
		doc.ChunkCount = upd.ChunkCount
		doc.EmbeddingModel = upd.EmbeddingModel
		doc.EmbeddingDim = upd.EmbeddingDim
		doc.Metadata = upd.Metadata
		return nil
	})
	if err != nil {
		s.fail(ctx, doc, err)
		return err
	}
	observability.Current().AddIngestChunks(s.cfg.VectorProvider, len(chunks))
	return nil
}

// checkCorpusDim keeps every indexed document at one vector length. The
// document being (re)indexed is ignored so a lone document can change model.
func (s *Service) checkCorpusDim(ctx context.Context, documentID uuid.UUID, dim int) error {
	if dim <= 0 {
		return nil
	}
	want, err := s.docs.IndexedEmbeddingDim(dbctx.New(ctx), documentID)
	if err != nil {
		return documents.PersistenceError("corpus_dimension", err)
	}
	if want > 0 && want != dim {
		return documents.EmbeddingError("embed", "dimension_mismatch",
			fmt.Errorf("embeddings have dimension %d, indexed documents use %d", dim, want))
	}
	return nil
}

// buildChunks splits every page and numbers chunks across the whole document.
func (s *Service) buildChunks(documentID uuid.UUID, pages []string) []documents.Chunk {
	var out []documents.Chunk
	for p, text := range pages {
		for _, part := range s.chunker.Split(text) {
			out = append(out, documents.Chunk{
				ID:         uuid.NewSHA1(documentID, []byte(fmt.Sprintf("chunk-%d", len(out)))),
				DocumentID: documentID,
				Page:       p + 1,
				Index:      len(out),
				Content:    part,
			})
		}
	}
	return out
}

// fail records the failure on a context that survives cancellation of ctx.
func (s *Service) fail(ctx context.Context, doc *documents.Document, cause error) {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BookkeepingTimeout)
	defer cancel()

	kind := string(documents.KindOf(cause))
	if kind == "" {
		kind = string(documents.KindPersistence)
	}
	if err := s.vectors.DeleteDocument(bctx, doc.ID); err != nil {
		s.log.Error("failed to remove partial chunks", "document_id", doc.ID.String(), "error", err)
	}
	if err := s.docs.MarkFailed(dbctx.New(bctx), doc.ID, kind, cause.Error()); err != nil {
		s.log.Error("failed to mark document failed", "document_id", doc.ID.String(), "error", err)
	}
	doc.Status = documents.StatusFailed
	doc.FailureKind = kind
	doc.FailureReason = cause.Error()
	s.log.Warn("document ingestion failed", "document_id", doc.ID.String(), "kind", kind, "error", cause)
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "docqa.ingest."+name)
	err := fn(ctx)
	observability.EndSpan(span, err)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveIngestStage(name, status, time.Since(started))
	return err
}

func (s *Service) recordOutcome(err error) {
	if err == nil {
		observability.Current().IncIngestOutcome("indexed", "")
		return
	}
	observability.Current().IncIngestOutcome("failed", string(documents.KindOf(err)))
}

func extractionMetadata(src source) datatypes.JSON {
	raw, err := json.Marshal(map[string]any{
		"extractor":   src.extractor,
		"empty_pages": src.empty,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
