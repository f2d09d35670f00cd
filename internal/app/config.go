package app

import (
	"strings"
	"time"

	"github.com/yungbote/docqa-backend/internal/data/db"
	"github.com/yungbote/docqa-backend/internal/modules/docqa"
	"github.com/yungbote/docqa-backend/internal/modules/docqa/fetch"
	"github.com/yungbote/docqa-backend/internal/platform/envutil"
	"github.com/yungbote/docqa-backend/internal/platform/gcp"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/redis"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string

	// JWTSecretKey enables bearer auth on /api when set.
	JWTSecretKey string
	CORSOrigins  string

	DB             db.Config
	MigrateOnStart bool
	// MigrateUsers also creates the user table (local runs only).
	MigrateUsers bool

	DocQA      docqa.Config
	Fetch      fetch.HTTPConfig
	GCSEnabled bool
	OCR        gcp.OCRConfig
	Cache      redis.CacheConfig
}

func (c Config) OCREnabled() bool {
	return strings.TrimSpace(c.OCR.ProjectID) != "" && strings.TrimSpace(c.OCR.ProcessorID) != ""
}

func (c Config) CacheEnabled() bool {
	return strings.TrimSpace(c.Cache.Addr) != ""
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		ServiceName:    envutil.String("SERVICE_NAME", "docqa"),
		Environment:    envutil.String("APP_ENV", "development"),
		Version:        envutil.String("APP_VERSION", "dev"),
		Port:           envutil.String("PORT", "8080"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:    envutil.String("CORS_ALLOWED_ORIGINS", ""),
		DB:             db.ConfigFromEnv(),
		MigrateOnStart: envutil.Bool("DB_AUTOMIGRATE", true),
		MigrateUsers:   envutil.Bool("DB_MIGRATE_USERS", false),
		DocQA:          docqa.ConfigFromEnv(),
		Fetch: fetch.HTTPConfig{
			Timeout:     envutil.Duration("FETCH_TIMEOUT", 60*time.Second),
			MaxBytes:    int64(envutil.Int("FETCH_MAX_BYTES", 64<<20)),
			MaxAttempts: envutil.Int("FETCH_MAX_ATTEMPTS", 2),
		},
		GCSEnabled: envutil.Bool("GCS_FETCH_ENABLED", true),
		OCR: gcp.OCRConfig{
			ProjectID:   envutil.String("DOCUMENTAI_PROJECT_ID", envutil.String("GOOGLE_CLOUD_PROJECT", "")),
			Location:    envutil.String("DOCUMENTAI_LOCATION", "us"),
			ProcessorID: envutil.String("DOCUMENTAI_PROCESSOR_ID", ""),
			Timeout:     envutil.Duration("DOCUMENTAI_TIMEOUT", 3*time.Minute),
		},
		Cache: redis.CacheConfigFromEnv(),
	}
	cfg.DocQA.VectorProvider = strings.ToLower(strings.TrimSpace(cfg.DocQA.VectorProvider))

	if log != nil {
		log.Info("Config loaded",
			"env", cfg.Environment,
			"db_driver", cfg.DB.Driver,
			"vector_provider", cfg.DocQA.VectorProvider,
			"auth_enabled", cfg.JWTSecretKey != "",
			"ocr_enabled", cfg.OCREnabled(),
			"query_cache_enabled", cfg.CacheEnabled(),
			"chunk_size", cfg.DocQA.ChunkSize,
			"chunk_overlap", cfg.DocQA.ChunkOverlap,
		)
	}
	return cfg
}
