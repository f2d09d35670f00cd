package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusIndexed Status = "indexed"
	StatusFailed  Status = "failed"
)

// Document is one uploaded PDF. It becomes indexed only after every chunk
// has been stored with its embedding.
type Document struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceURL      string    `gorm:"column:source_url;type:text;not null" json:"source_url"`
	Title          string    `gorm:"column:title;type:text" json:"title"`
	Category       string    `gorm:"column:category;index" json:"category"`
	OwnerCompanyID uuid.UUID `gorm:"type:uuid;column:owner_company_id;not null;index" json:"owner_company_id"`
	OwnerUserID    uuid.UUID `gorm:"type:uuid;column:owner_user_id;index" json:"owner_user_id"`
	Status         Status    `gorm:"column:status;type:varchar(16);not null;index" json:"status"`

	PageCount      int    `gorm:"column:page_count;not null;default:0" json:"page_count"`
	ChunkCount     int    `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`
	EmbeddingModel string `gorm:"column:embedding_model" json:"embedding_model,omitempty"`
	EmbeddingDim   int    `gorm:"column:embedding_dim;not null;default:0" json:"embedding_dim,omitempty"`
	ContentSHA256  string `gorm:"column:content_sha256;index" json:"content_sha256,omitempty"`

	FailureKind   string `gorm:"column:failure_kind" json:"failure_kind,omitempty"`
	FailureReason string `gorm:"column:failure_reason;type:text" json:"failure_reason,omitempty"`

	// extraction diagnostics (extractor name, empty pages, ocr fallback)
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	return nil
}

func (d *Document) Indexed() bool { return d != nil && d.Status == StatusIndexed }
