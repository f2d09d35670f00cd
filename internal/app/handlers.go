package app

import (
	"context"

	httpH "github.com/yungbote/docqa-backend/internal/http/handlers"
	httpMW "github.com/yungbote/docqa-backend/internal/http/middleware"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

type Handlers struct {
	Document *httpH.DocumentHandler
	Ask      *httpH.AskHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services, checks ...httpH.ReadinessCheck) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Document: httpH.NewDocumentHandler(services.DocQA),
		Ask:      httpH.NewAskHandler(services.DocQA),
		Health:   httpH.NewHealthHandler(checks...),
	}
}

type Middleware struct {
	// Auth is nil when JWT_SECRET_KEY is unset.
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "" {
		log.Warn("JWT_SECRET_KEY not set; /api is unauthenticated")
		return Middleware{}
	}
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey)}
}

func dbCheck(ping func(ctx context.Context) error) httpH.ReadinessCheck {
	return httpH.ReadinessCheck{Name: "database", Check: ping}
}
