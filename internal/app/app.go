package app

import (
	"context"
	"fmt"
	"net"

	"github.com/yungbote/docqa-backend/internal/data/db"
	apphttp "github.com/yungbote/docqa-backend/internal/http"
	"github.com/yungbote/docqa-backend/internal/modules/docqa"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/envutil"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/vectorstore"
)

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Vectors  vectorstore.Store
	Services Services
	Server   *apphttp.Server

	shutdownOTel func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	observability.Init(log)
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := Migrate(ctx, dbs, cfg); err != nil {
			_ = dbs.Close()
			return nil, err
		}
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbs.Close()
		return nil, err
	}

	vectors, err := resolveVectorStore(ctx, log, cfg, dbs.DB(), dbs.Driver())
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		return nil, err
	}

	reposet := wireRepos(dbs.DB(), log)
	serviceset, err := wireServices(log, cfg, clients, reposet, vectors)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, dbCheck(dbs.Ping))
	middleware := wireMiddleware(log, cfg)

	return &App{
		Log:          log,
		DB:           dbs,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Vectors:      vectors,
		Services:     serviceset,
		Server:       wireServer(log, cfg, handlerset, middleware),
		shutdownOTel: shutdownOTel,
	}, nil
}

// Migrate creates the document tables and, for pgvector, the chunk table.
func Migrate(ctx context.Context, dbs *db.Service, cfg Config) error {
	opts := db.MigrateOptions{
		IncludeUsers: cfg.MigrateUsers || dbs.Driver() == db.DriverSQLite,
		ChunkTable:   cfg.DocQA.VectorProvider == VectorProviderPgvector && dbs.Driver() == db.DriverPostgres,
		EmbeddingDim: cfg.DocQA.EmbeddingDim,
	}
	if err := db.AutoMigrateAll(ctx, dbs.DB(), opts); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (a *App) DocQA() *docqa.Service {
	if a == nil {
		return nil
	}
	return a.Services.DocQA
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := net.JoinHostPort("", a.Cfg.Port)
	a.Log.Info("HTTP server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.shutdownOTel != nil {
		_ = a.shutdownOTel(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
