package documents

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/docqa-backend/internal/data/dberr"
	domain "github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/dbctx"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

// IndexedUpdate carries the fields written together with the indexed transition.
type IndexedUpdate struct {
	PageCount      int
	ChunkCount     int
	EmbeddingModel string
	EmbeddingDim   int
	ContentSHA256  string
	Metadata       datatypes.JSON
}

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *domain.Document) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error)
	ListByCompany(dbc dbctx.Context, companyID uuid.UUID, limit int) ([]*domain.Document, error)
	MarkPending(dbc dbctx.Context, id uuid.UUID) error
	MarkIndexed(dbc dbctx.Context, id uuid.UUID, upd IndexedUpdate) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, kind, reason string) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	// IndexedEmbeddingDim returns the vector length of the indexed corpus,
	// ignoring exclude, or 0 while no indexed document has vectors.
	IndexedEmbeddingDim(dbc dbctx.Context, exclude uuid.UUID) (int, error)
}

const maxFailureReason = 2000

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *domain.Document) error {
	if doc == nil {
		return nil
	}
	return dberr.Classify("document.create", dbc.DB(r.db).Create(doc).Error)
}

// GetByID returns (nil, nil) when the document does not exist.
func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row domain.Document
	err := dbc.DB(r.db).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, dberr.Classify("document.get", err)
	}
	return &row, nil
}

func (r *documentRepo) ListByCompany(dbc dbctx.Context, companyID uuid.UUID, limit int) ([]*domain.Document, error) {
	out := []*domain.Document{}
	if companyID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).
		Where("owner_company_id = ?", companyID).
		Order("created_at DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, dberr.Classify("document.list_by_company", err)
	}
	return out, nil
}

func (r *documentRepo) MarkPending(dbc dbctx.Context, id uuid.UUID) error {
	return r.update(dbc, "document.mark_pending", id, map[string]any{
		"status":         domain.StatusPending,
		"failure_kind":   "",
		"failure_reason": "",
		"updated_at":     time.Now().UTC(),
	})
}

func (r *documentRepo) MarkIndexed(dbc dbctx.Context, id uuid.UUID, upd IndexedUpdate) error {
	fields := map[string]any{
		"status":          domain.StatusIndexed,
		"page_count":      upd.PageCount,
		"chunk_count":     upd.ChunkCount,
		"embedding_model": upd.EmbeddingModel,
		"embedding_dim":   upd.EmbeddingDim,
		"content_sha256":  upd.ContentSHA256,
		"failure_kind":    "",
		"failure_reason":  "",
		"updated_at":      time.Now().UTC(),
	}
	if len(upd.Metadata) > 0 {
		fields["metadata"] = upd.Metadata
	}
	return r.update(dbc, "document.mark_indexed", id, fields)
}

func (r *documentRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, kind, reason string) error {
	return r.update(dbc, "document.mark_failed", id, map[string]any{
		"status":         domain.StatusFailed,
		"failure_kind":   kind,
		"failure_reason": clipReason(reason),
		"updated_at":     time.Now().UTC(),
	})
}

func (r *documentRepo) IndexedEmbeddingDim(dbc dbctx.Context, exclude uuid.UUID) (int, error) {
	var dims []int
	q := dbc.DB(r.db).Model(&domain.Document{}).
		Where("status = ? AND embedding_dim > 0", domain.StatusIndexed)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Order("updated_at DESC").Limit(1).Pluck("embedding_dim", &dims).Error; err != nil {
		return 0, dberr.Classify("document.indexed_embedding_dim", err)
	}
	if len(dims) == 0 {
		return 0, nil
	}
	return dims[0], nil
}

// clipReason keeps failure text valid UTF-8 (Postgres rejects anything else)
// and cuts it on a rune boundary.
func clipReason(reason string) string {
	reason = strings.ToValidUTF8(reason, "\uFFFD")
	if len(reason) <= maxFailureReason {
		return reason
	}
	cut := maxFailureReason
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}

func (r *documentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&domain.Document{})
	if res.Error != nil {
		return dberr.Classify("document.delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return &dberr.Error{Code: dberr.CodeNotFound, Op: "document.delete", Err: gorm.ErrRecordNotFound}
	}
	return nil
}

func (r *documentRepo) update(dbc dbctx.Context, op string, id uuid.UUID, fields map[string]any) error {
	res := dbc.DB(r.db).Model(&domain.Document{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return dberr.Classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return &dberr.Error{Code: dberr.CodeNotFound, Op: op, Err: gorm.ErrRecordNotFound}
	}
	return nil
}
