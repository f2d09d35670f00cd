package app

import (
	apphttp "github.com/yungbote/docqa-backend/internal/http"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		Metrics:         observability.Current(),
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.Auth,
		DocumentHandler: handlers.Document,
		AskHandler:      handlers.Ask,
		HealthHandler:   handlers.Health,
	})
}
