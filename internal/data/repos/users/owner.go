package users

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/docqa-backend/internal/data/dberr"
	domain "github.com/yungbote/docqa-backend/internal/domain/users"
	"github.com/yungbote/docqa-backend/internal/platform/dbctx"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

// OwnerLookup resolves the company that owns documents uploaded by a user.
type OwnerLookup interface {
	CompanyIDForUser(dbc dbctx.Context, userID uuid.UUID) (uuid.UUID, error)
}

type ownerLookup struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOwnerLookup(db *gorm.DB, baseLog *logger.Logger) OwnerLookup {
	return &ownerLookup{db: db, log: baseLog.With("repo", "OwnerLookup")}
}

func (r *ownerLookup) CompanyIDForUser(dbc dbctx.Context, userID uuid.UUID) (uuid.UUID, error) {
	const op = "users.company_for_user"
	if userID == uuid.Nil {
		return uuid.Nil, &dberr.Error{Code: dberr.CodeNotFound, Op: op, Err: fmt.Errorf("user id is empty")}
	}
	var row domain.User
	err := dbc.DB(r.db).
		Select("id", "company_id").
		Where("id = ?", userID).
		First(&row).Error
	if err != nil {
		return uuid.Nil, dberr.Classify(op, err)
	}
	if row.CompanyID == nil || *row.CompanyID == uuid.Nil {
		return uuid.Nil, &dberr.Error{Code: dberr.CodeNotFound, Op: op, Err: fmt.Errorf("user %s has no company", userID)}
	}
	return *row.CompanyID, nil
}
