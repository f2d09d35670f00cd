package docqa

import (
	"fmt"
	"time"

	"github.com/yungbote/docqa-backend/internal/modules/docqa/chunker"
	"github.com/yungbote/docqa-backend/internal/platform/envutil"
)

type Config struct {
	ChunkSize    int
	ChunkOverlap int

	EmbedBatchSize      int
	EmbedConcurrency    int
	EmbedRateLimitRPS   float64
	EmbedRateLimitBurst int
	EmbedMaxAttempts    int
	EmbedBackoffBase    time.Duration
	EmbedBackoffMax     time.Duration
	// EmbeddingDim pins the expected vector length; 0 accepts whatever the first batch returns.
	EmbeddingDim int

	TopK int

	// VectorProvider only labels metrics.
	VectorProvider string
	// BookkeepingTimeout bounds the detached cleanup after a failed run.
	BookkeepingTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:           chunker.DefaultSize,
		ChunkOverlap:        chunker.DefaultOverlap,
		EmbedBatchSize:      64,
		EmbedConcurrency:    4,
		EmbedRateLimitBurst: 1,
		EmbedMaxAttempts:    3,
		EmbedBackoffBase:    500 * time.Millisecond,
		EmbedBackoffMax:     8 * time.Second,
		TopK:                5,
		VectorProvider:      "pgvector",
		BookkeepingTimeout:  30 * time.Second,
	}
}

func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		ChunkSize:           envutil.Int("CHUNK_SIZE", def.ChunkSize),
		ChunkOverlap:        envutil.Int("CHUNK_OVERLAP", def.ChunkOverlap),
		EmbedBatchSize:      envutil.Int("EMBED_BATCH_SIZE", def.EmbedBatchSize),
		EmbedConcurrency:    envutil.Int("EMBED_CONCURRENCY", def.EmbedConcurrency),
		EmbedRateLimitRPS:   envutil.Float("EMBED_RATE_LIMIT_RPS", 0),
		EmbedRateLimitBurst: envutil.Int("EMBED_RATE_LIMIT_BURST", def.EmbedRateLimitBurst),
		EmbedMaxAttempts:    envutil.Int("EMBED_MAX_ATTEMPTS", def.EmbedMaxAttempts),
		EmbedBackoffBase:    envutil.Duration("EMBED_BACKOFF_BASE", def.EmbedBackoffBase),
		EmbedBackoffMax:     envutil.Duration("EMBED_BACKOFF_MAX", def.EmbedBackoffMax),
		EmbeddingDim:        envutil.Int("EMBEDDING_DIM", 0),
		TopK:                envutil.Int("RETRIEVAL_TOP_K", def.TopK),
		VectorProvider:      envutil.String("VECTOR_PROVIDER", def.VectorProvider),
		BookkeepingTimeout:  envutil.Duration("INGEST_BOOKKEEPING_TIMEOUT", def.BookkeepingTimeout),
	}
}

// normalize fills zero values from defaults and validates the rest.
func (c Config) normalize() (Config, error) {
	def := DefaultConfig()
	if c.ChunkSize == 0 {
		c.ChunkSize = def.ChunkSize
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = def.ChunkOverlap
		}
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = def.EmbedBatchSize
	}
	if c.EmbedConcurrency <= 0 {
		c.EmbedConcurrency = 1
	}
	if c.EmbedMaxAttempts <= 0 {
		c.EmbedMaxAttempts = def.EmbedMaxAttempts
	}
	if c.EmbedBackoffBase < 0 {
		c.EmbedBackoffBase = 0
	}
	if c.EmbedRateLimitBurst <= 0 {
		c.EmbedRateLimitBurst = 1
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.BookkeepingTimeout <= 0 {
		c.BookkeepingTimeout = def.BookkeepingTimeout
	}
	if c.EmbeddingDim < 0 {
		return c, fmt.Errorf("EMBEDDING_DIM must be >= 0 (got %d)", c.EmbeddingDim)
	}
	return c, nil
}
