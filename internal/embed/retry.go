package embed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// RetryConfig configures retry behavior for embedding calls.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (0 = no retries)
	RetryDelay time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries (caps exponential backoff)
	Timeout    time.Duration // Per-request timeout
}

// DefaultRetryConfig returns a sensible default configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		RetryDelay: time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    2 * time.Minute,
	}
}

// Retry wraps an Embedder with per-attempt timeouts and exponential backoff.
type Retry struct {
	inner  Embedder
	config *RetryConfig
}

// NewRetry wraps inner; a nil config uses DefaultRetryConfig.
func NewRetry(inner Embedder, config *RetryConfig) *Retry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retry{inner: inner, config: config}
}

func (r *Retry) Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		}
		out, err := r.inner.Embed(attemptCtx, chunks)
		cancel()

		if err == nil {
			return out, nil
		}
		lastErr = err

		if !Retryable(err) {
			return nil, fmt.Errorf("non-retryable error: %w", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.config.MaxRetries, lastErr)
}

// backoff returns the delay for the given attempt: RetryDelay * 2^(attempt-1),
// capped at MaxDelay.
func (r *Retry) backoff(attempt int) time.Duration {
	delay := r.config.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
			return r.config.MaxDelay
		}
	}
	return delay
}

// Retryable reports whether an embedding error is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	// Caller cancelled; a wrong vector count will not fix itself.
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCountMismatch) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := err.Error()

	if strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") {
		return !strings.Contains(msg, "tokens per day")
	}

	for _, code := range []int{
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	} {
		if strings.Contains(msg, fmt.Sprint(code)) || strings.Contains(msg, http.StatusText(code)) {
			return true
		}
	}

	for _, code := range []string{"400", "401", "403", "404"} {
		if strings.Contains(msg, code) {
			return false
		}
	}

	// Unknown errors from remote services are usually transient.
	return true
}
