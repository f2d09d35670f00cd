package docqa

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/observability"
	"github.com/yungbote/docqa-backend/internal/platform/httpx"
	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

// embedPool embeds texts in batches with bounded parallelism, a shared token
// bucket and per-batch retries. Results are placed by input index.
type embedPool struct {
	log      *logger.Logger
	embedder Embedder
	limiter  *rate.Limiter
	cfg      Config
	// sleep is swapped in tests.
	sleep func(ctx context.Context, attempt int) error
}

func newEmbedPool(log *logger.Logger, embedder Embedder, cfg Config) *embedPool {
	p := &embedPool{log: log, embedder: embedder, cfg: cfg}
	if cfg.EmbedRateLimitRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRateLimitRPS), cfg.EmbedRateLimitBurst)
	}
	p.sleep = func(ctx context.Context, attempt int) error {
		d := httpx.JitterSleep(httpx.Backoff(cfg.EmbedBackoffBase, cfg.EmbedBackoffMax, attempt))
		return httpx.Sleep(ctx, d)
	}
	return p
}

type embedSpan struct {
	start, end int
}

// EmbedAll returns one vector per text, all of the same dimension.
func (p *embedPool) EmbedAll(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, p.cfg.EmbeddingDim, nil
	}
	batch := p.cfg.EmbedBatchSize
	spans := make([]embedSpan, 0, len(texts)/batch+1)
	for start := 0; start < len(texts); start += batch {
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		spans = append(spans, embedSpan{start: start, end: end})
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EmbedConcurrency)
	for _, sp := range spans {
		sp := sp
		g.Go(func() error {
			vecs, err := p.embedBatch(gctx, texts[sp.start:sp.end])
			if err != nil {
				return fmt.Errorf("batch [%d,%d): %w", sp.start, sp.end, err)
			}
			// spans are disjoint, so each goroutine writes its own slots
			for i, v := range vecs {
				out[sp.start+i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var de *documents.Error
		if errors.As(err, &de) {
			return nil, 0, err
		}
		if ctx.Err() != nil {
			return nil, 0, documents.EmbeddingError("embed", "canceled", err)
		}
		return nil, 0, documents.EmbeddingError("embed", embedFailureCode(err), err)
	}

	dim := p.cfg.EmbeddingDim
	for i, v := range out {
		if len(v) == 0 {
			return nil, 0, documents.EmbeddingError("embed", "empty_vector", fmt.Errorf("chunk %d has no embedding", i))
		}
		if dim == 0 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return nil, 0, documents.EmbeddingError("embed", "dimension_mismatch", fmt.Errorf("chunk %d has dimension %d, expected %d", i, len(v), dim))
		}
	}
	return out, dim, nil
}

func (p *embedPool) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.EmbedMaxAttempts; attempt++ {
		// a failed sibling cancels ctx; batches started after that never reach the embedder
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			if err := p.sleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		vecs, err := p.embedder.Embed(ctx, texts)
		if err == nil && len(vecs) != len(texts) {
			err = fmt.Errorf("embedding count mismatch: got %d want %d", len(vecs), len(texts))
		}
		if err == nil {
			observability.Current().IncEmbedBatch("ok")
			return vecs, nil
		}
		lastErr = err
		if !shouldRetryEmbed(ctx, err) {
			break
		}
		observability.Current().IncEmbedRetry(retryReason(err))
		p.log.Warn("embedding batch failed; retrying", "attempt", attempt+1, "max_attempts", p.cfg.EmbedMaxAttempts, "batch", len(texts), "error", err)
	}
	observability.Current().IncEmbedBatch("error")
	return nil, lastErr
}

// embedFailureCode separates upstream refusals from retries that ran out.
func embedFailureCode(err error) string {
	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) && !httpx.IsRetryableHTTPStatus(sc.HTTPStatusCode()) {
		return "rejected"
	}
	return "exhausted"
}

// shouldRetryEmbed retries everything except cancellation and non-retryable HTTP statuses.
func shouldRetryEmbed(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		return httpx.IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return true
}

func retryReason(err error) string {
	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		return fmt.Sprintf("http_%d", sc.HTTPStatusCode())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
