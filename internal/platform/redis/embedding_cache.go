package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/envutil"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

func CacheConfigFromEnv() CacheConfig {
	return CacheConfig{
		Addr:     strings.TrimSpace(envutil.String("REDIS_ADDR", "")),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		TTL:      envutil.Duration("EMBED_CACHE_TTL", 24*time.Hour),
		Prefix:   envutil.String("EMBED_CACHE_PREFIX", "docqa:qemb"),
	}
}

type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// EmbeddingCache stores question embeddings keyed by model and text hash.
type EmbeddingCache struct {
	log    *logger.Logger
	rdb    kv
	closer func() error
	ttl    time.Duration
	prefix string
}

func NewEmbeddingCache(ctx context.Context, log *logger.Logger, cfg CacheConfig) (*EmbeddingCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newEmbeddingCache(log, rdb, rdb.Close, cfg), nil
}

func newEmbeddingCache(log *logger.Logger, rdb kv, closer func() error, cfg CacheConfig) *EmbeddingCache {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = "docqa:qemb"
	}
	return &EmbeddingCache{
		log:    log.With("service", "EmbeddingCache"),
		rdb:    rdb,
		closer: closer,
		ttl:    cfg.TTL,
		prefix: prefix,
	}
}

func (c *EmbeddingCache) Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + ":" + model + ":" + hex.EncodeToString(sum[:])
}

// Get returns ok=false on a miss. Errors are returned so callers can decide to bypass.
func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, c.Key(model, text)).Bytes()
	if errors.Is(err, goredis.Nil) {
		observability.Current().IncCacheLookup("miss")
		return nil, false, nil
	}
	if err != nil {
		observability.Current().IncCacheLookup("error")
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		observability.Current().IncCacheLookup("error")
		return nil, false, fmt.Errorf("decode cached embedding: %w", err)
	}
	if len(vec) == 0 {
		observability.Current().IncCacheLookup("error")
		return nil, false, fmt.Errorf("cached embedding is empty")
	}
	observability.Current().IncCacheLookup("hit")
	return vec, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, model, text string, vec []float32) error {
	if c == nil || c.rdb == nil || len(vec) == 0 {
		return nil
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.Key(model, text), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}
