package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/domain/users"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, companyID *uuid.UUID) *users.User {
	tb.Helper()
	u := &users.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		CompanyID: companyID,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, companyID uuid.UUID, status documents.Status) *documents.Document {
	tb.Helper()
	d := &documents.Document{
		SourceURL:      "https://files.example.com/" + uuid.NewString() + ".pdf",
		Title:          "Service manual",
		Category:       "manuals",
		OwnerCompanyID: companyID,
		Status:         status,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}
