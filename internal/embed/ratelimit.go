package embed

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// RateLimitConfig limits embedding requests.
type RateLimitConfig struct {
	// RequestsPerMinute limits calls to the inner embedder (0 = unlimited).
	RequestsPerMinute int
	// BurstSize allows temporary bursts above the rate.
	BurstSize int
}

// RateLimited waits for limiter capacity before each call.
type RateLimited struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps inner. A zero rate returns a limiter that never
// blocks.
func NewRateLimited(inner Embedder, cfg RateLimitConfig) *RateLimited {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = int(math.Max(1, float64(cfg.RequestsPerMinute)/6)) // ~10 second burst
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, chunks)
}
