package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/docqa-backend/internal/http/handlers"
	httpMW "github.com/yungbote/docqa-backend/internal/http/middleware"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    string
	AuthMiddleware *httpMW.AuthMiddleware

	DocumentHandler *httpH.DocumentHandler
	AskHandler      *httpH.AskHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Documents
	if cfg.DocumentHandler != nil {
		api.POST("/documents/ingest", cfg.DocumentHandler.Ingest)
		api.GET("/documents/:id", cfg.DocumentHandler.Get)
		api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
		api.POST("/documents/:id/reingest", cfg.DocumentHandler.Reingest)
		api.GET("/companies/:id/documents", cfg.DocumentHandler.ListByCompany)
	}

	// Ask
	if cfg.AskHandler != nil {
		api.POST("/ask", cfg.AskHandler.Ask)
	}

	return r
}
