package app

import (
	"context"
	"fmt"

	"github.com/yungbote/docqa-backend/internal/platform/gcp"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
	"github.com/yungbote/docqa-backend/internal/platform/openai"
	"github.com/yungbote/docqa-backend/internal/platform/redis"
)

type Clients struct {
	OpenAI openai.Client
	// Optional: nil when the matching feature is disabled.
	Blob  *gcp.BlobStore
	OCR   *gcp.DocumentOCR
	Cache *redis.EmbeddingCache
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// OpenAI
	oa, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	out.OpenAI = oa

	// GCS
	if cfg.GCSEnabled {
		blob, err := gcp.NewBlobStore(ctx, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init gcs client: %w", err)
		}
		out.Blob = blob
	}

	// Document AI
	if cfg.OCREnabled() {
		ocr, err := gcp.NewDocumentOCR(ctx, log, cfg.OCR)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init document ai client: %w", err)
		}
		out.OCR = ocr
	}

	// Redis
	if cfg.CacheEnabled() {
		cache, err := redis.NewEmbeddingCache(ctx, log, cfg.Cache)
		if err != nil {
			// the cache is an optimisation; run without it
			log.Warn("query embedding cache unavailable", "addr", cfg.Cache.Addr, "error", err)
		} else {
			out.Cache = cache
		}
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.OCR != nil {
		_ = c.OCR.Close()
	}
	if c.Blob != nil {
		_ = c.Blob.Close()
	}
}
