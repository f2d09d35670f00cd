package pgvector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	pgv "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/docqa-backend/internal/data/dberr"
	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

const insertBatchSize = 200

// ChunkRow is the document_chunk table. Rows are removed with their document.
type ChunkRow struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey"`
	DocumentID uuid.UUID           `gorm:"type:uuid;column:document_id;not null;index;uniqueIndex:idx_document_chunk_doc_index,priority:1"`
	Document   *documents.Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID"`
	ChunkIndex int                 `gorm:"column:chunk_index;not null;uniqueIndex:idx_document_chunk_doc_index,priority:2"`
	Page       int                 `gorm:"column:page;not null"`
	Content    string              `gorm:"column:content;type:text;not null"`
	Embedding  pgv.Vector          `gorm:"column:embedding;type:vector"`
	CreatedAt  time.Time
}

func (ChunkRow) TableName() string { return "document_chunk" }

type Store struct {
	db  *gorm.DB
	log *logger.Logger

	mu sync.Mutex
	// dim is the pinned column dimension once known.
	dim int
}

var _ vectorstore.Store = (*Store)(nil)

func New(db *gorm.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log.With("service", "PgvectorStore")}
}

// Migrate creates the chunk table and, when dim > 0, pins the column to
// vector(dim) with an HNSW cosine index. With dim == 0 the store pins the
// column on the first write instead.
func Migrate(ctx context.Context, db *gorm.DB, dim int) error {
	tx := db.WithContext(ctx)
	if err := tx.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return fmt.Errorf("enable vector extension: %w", err)
	}
	if err := tx.AutoMigrate(&ChunkRow{}); err != nil {
		return fmt.Errorf("automigrate document_chunk: %w", err)
	}
	if dim <= 0 {
		return nil
	}
	return pinDimension(tx, dim)
}

func pinDimension(tx *gorm.DB, dim int) error {
	if err := tx.Exec(fmt.Sprintf(`ALTER TABLE document_chunk ALTER COLUMN embedding TYPE vector(%d);`, dim)).Error; err != nil {
		return fmt.Errorf("set embedding dimension: %w", err)
	}
	if err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_document_chunk_embedding_hnsw ON document_chunk USING hnsw (embedding vector_cosine_ops);`).Error; err != nil {
		return fmt.Errorf("create hnsw index: %w", err)
	}
	return nil
}

// columnDimension reads the declared vector(n) size; 0 means untyped.
func columnDimension(tx *gorm.DB) (int, error) {
	var typmod int
	err := tx.Raw(`SELECT a.atttypmod FROM pg_attribute a
		WHERE a.attrelid = 'document_chunk'::regclass AND a.attname = 'embedding' AND NOT a.attisdropped`).
		Scan(&typmod).Error
	if err != nil {
		return 0, err
	}
	if typmod < 0 {
		return 0, nil
	}
	return typmod, nil
}

// ensureDimension pins an untyped column to dim before the first insert, so
// the database rejects any later vector of another length.
func (s *Store) ensureDimension(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == dim {
		return nil
	}
	tx := s.db.WithContext(ctx)
	current, err := columnDimension(tx)
	if err != nil {
		return dberr.Classify("pgvector.column_dimension", err)
	}
	if current == 0 {
		if err := pinDimension(tx, dim); err != nil {
			return err
		}
		s.log.Info("pinned embedding column", "dim", dim)
		current = dim
	}
	s.dim = current
	if current != dim {
		return documents.ValidationError("vector_put", fmt.Errorf("chunk dimension %d differs from column dimension %d", dim, current))
	}
	return nil
}

func (s *Store) Put(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	dim, err := vectorstore.ValidateChunks(documentID, chunks)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureDimension(ctx, dim); err != nil {
		return err
	}
	rows := toRows(chunks)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Document").CreateInBatches(rows, insertBatchSize).Error
	})
	return dberr.Classify("pgvector.put", err)
}

func (s *Store) Replace(ctx context.Context, documentID uuid.UUID, chunks []documents.Chunk) error {
	dim, err := vectorstore.ValidateChunks(documentID, chunks)
	if err != nil {
		return err
	}
	if dim > 0 {
		if err := s.ensureDimension(ctx, dim); err != nil {
			return err
		}
	}
	rows := toRows(chunks)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&ChunkRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Omit("Document").CreateInBatches(rows, insertBatchSize).Error
	})
	return dberr.Classify("pgvector.replace", err)
}

type scoredRow struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	ChunkIndex int
	Page       int
	Content    string
	Distance   float64
}

// Query only returns chunks of an indexed document.
func (s *Store) Query(ctx context.Context, documentID uuid.UUID, vector []float32, k int) ([]documents.ScoredChunk, error) {
	if err := vectorstore.ValidateQuery(vector, k); err != nil {
		return nil, err
	}
	var rows []scoredRow
	err := s.db.WithContext(ctx).
		Table("document_chunk AS c").
		Select("c.id, c.document_id, c.chunk_index, c.page, c.content, c.embedding <=> ? AS distance", pgv.NewVector(vector)).
		Joins("JOIN document AS d ON d.id = c.document_id").
		Where("c.document_id = ? AND d.status = ?", documentID, documents.StatusIndexed).
		Order("distance ASC, c.chunk_index ASC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, dberr.Classify("pgvector.query", err)
	}
	out := make([]documents.ScoredChunk, 0, len(rows))
	for _, r := range rows {
		out = append(out, documents.ScoredChunk{
			Chunk: documents.Chunk{
				ID:         r.ID,
				DocumentID: r.DocumentID,
				Page:       r.Page,
				Index:      r.ChunkIndex,
				Content:    r.Content,
			},
			Distance: r.Distance,
		})
	}
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&ChunkRow{}).Error
	return dberr.Classify("pgvector.delete", err)
}

func toRows(chunks []documents.Chunk) []ChunkRow {
	rows := make([]ChunkRow, 0, len(chunks))
	for _, ch := range chunks {
		id := ch.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		rows = append(rows, ChunkRow{
			ID:         id,
			DocumentID: ch.DocumentID,
			ChunkIndex: ch.Index,
			Page:       ch.Page,
			Content:    ch.Content,
			Embedding:  pgv.NewVector(ch.Embedding),
		})
	}
	return rows
}
