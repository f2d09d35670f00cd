package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/docqa-backend/internal/data/repos/documents"
	"github.com/yungbote/docqa-backend/internal/data/repos/users"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

type Repos struct {
	Documents documents.DocumentRepo
	Owners    users.OwnerLookup
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Documents: documents.NewDocumentRepo(db, log),
		Owners:    users.NewOwnerLookup(db, log),
	}
}
