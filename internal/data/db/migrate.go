package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/domain/users"
	"github.com/yungbote/docqa-backend/internal/platform/pgvector"
)

type MigrateOptions struct {
	// IncludeUsers creates the user table. In production it belongs to the identity service.
	IncludeUsers bool
	// ChunkTable creates document_chunk for the pgvector provider.
	ChunkTable   bool
	EmbeddingDim int
}

func AutoMigrateAll(ctx context.Context, db *gorm.DB, opts MigrateOptions) error {
	tx := db.WithContext(ctx)
	if opts.IncludeUsers {
		if err := tx.AutoMigrate(&users.User{}); err != nil {
			return fmt.Errorf("automigrate user: %w", err)
		}
	}
	if err := tx.AutoMigrate(&documents.Document{}); err != nil {
		return fmt.Errorf("automigrate document: %w", err)
	}
	if opts.ChunkTable {
		if err := pgvector.Migrate(ctx, db, opts.EmbeddingDim); err != nil {
			return err
		}
	}
	return nil
}
