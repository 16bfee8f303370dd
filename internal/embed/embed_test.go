package embed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// recorder embeds each chunk as [len(content)] and records every call.
type recorder struct {
	mu     sync.Mutex
	calls  [][]string
	errs   []error // returned in order, one per call, before succeeding
	offset int     // extra vectors to return, to simulate a bad backend
}

func (r *recorder) Embed(_ context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Texts(chunks))
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return nil, err
	}
	out := make([]Embedding, 0, len(chunks)+r.offset)
	for _, c := range chunks {
		out = append(out, Embedding{float32(len(c.Content))})
	}
	for i := 0; i < r.offset; i++ {
		out = append(out, Embedding{0})
	}
	return out, nil
}

func chunksOf(contents ...string) []chunk.Chunk {
	out := make([]chunk.Chunk, len(contents))
	for i, c := range contents {
		out[i] = chunk.Chunk{Path: fmt.Sprintf("f%d.go", i), Content: c}
	}
	return out
}

type fakeLangchain struct {
	docs [][]string
	drop bool
}

func (f *fakeLangchain) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docs = append(f.docs, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	if f.drop {
		out = out[1:]
	}
	return out, nil
}

func (f *fakeLangchain) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func TestTextEmbedder(t *testing.T) {
	impl := &fakeLangchain{}
	e := NewTextEmbedder("fake", impl)

	out, err := e.Embed(context.Background(), chunksOf("a", "bbb"))
	require.NoError(t, err)
	assert.Equal(t, []Embedding{{1, 1}, {3, 1}}, out)
	assert.Equal(t, [][]string{{"a", "bbb"}}, impl.docs)

	out, err = e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Len(t, impl.docs, 1, "empty batches are not sent")
}

func TestTextEmbedderCountMismatch(t *testing.T) {
	e := NewTextEmbedder("fake", &fakeLangchain{drop: true})
	_, err := e.Embed(context.Background(), chunksOf("a", "b"))
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestHashEmbedderDeterministic(t *testing.T) {
	h := NewHashEmbedder(32)
	in := chunksOf("func Add(a, b int) int { return a + b }", "func Add(a, b int) int { return a + b }", "class Foo: pass")

	out, err := h.Embed(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Len(t, out[0], 32)
	assert.Equal(t, out[0], out[1])
	assert.NotEqual(t, out[0], out[2])

	var norm float32
	for _, x := range out[0] {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
	assert.Equal(t, DefaultHashDimension, NewHashEmbedder(0).Dimension())
}

func TestBatched(t *testing.T) {
	rec := &recorder{}
	b := NewBatched(rec, 2)

	out, err := b.Embed(context.Background(), chunksOf("a", "bb", "ccc", "dddd", "eeeee"))
	require.NoError(t, err)
	assert.Equal(t, []Embedding{{1}, {2}, {3}, {4}, {5}}, out)
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, rec.calls)
}

func TestBatchedFailureFailsWholeCall(t *testing.T) {
	rec := &recorder{}
	b := NewBatched(Func(func(ctx context.Context, c []chunk.Chunk) ([]Embedding, error) {
		if c[0].Content == "ccc" {
			return nil, errors.New("boom")
		}
		return rec.Embed(ctx, c)
	}), 2)

	out, err := b.Embed(context.Background(), chunksOf("a", "bb", "ccc"))
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestBatchedCountMismatch(t *testing.T) {
	b := NewBatched(&recorder{offset: 1}, 2)
	_, err := b.Embed(context.Background(), chunksOf("a", "b", "c"))
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestCachedDedupes(t *testing.T) {
	rec := &recorder{}
	c, err := NewCached(rec, 10)
	require.NoError(t, err)

	out, err := c.Embed(context.Background(), chunksOf("x", "yy", "x"))
	require.NoError(t, err)
	assert.Equal(t, []Embedding{{1}, {2}, {1}}, out)
	assert.Equal(t, [][]string{{"x", "yy"}}, rec.calls)

	out, err = c.Embed(context.Background(), chunksOf("yy", "zzz"))
	require.NoError(t, err)
	assert.Equal(t, []Embedding{{2}, {3}}, out)
	assert.Equal(t, []string{"zzz"}, rec.calls[1])
	assert.Equal(t, 3, c.Len())

	// Returned vectors are copies.
	out[0][0] = 99
	again, err := c.Embed(context.Background(), chunksOf("yy"))
	require.NoError(t, err)
	assert.Equal(t, Embedding{2}, again[0])
}

func TestCachedRejectsBadSize(t *testing.T) {
	_, err := NewCached(&recorder{}, 0)
	assert.Error(t, err)
}

func TestRetrySucceedsAfterRetryableErrors(t *testing.T) {
	rec := &recorder{errs: []error{
		errors.New("500 Internal Server Error"),
		errors.New("503 Service Unavailable"),
	}}
	r := NewRetry(rec, &RetryConfig{MaxRetries: 3, RetryDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Timeout: time.Second})

	out, err := r.Embed(context.Background(), chunksOf("abc"))
	require.NoError(t, err)
	assert.Equal(t, []Embedding{{3}}, out)
	assert.Len(t, rec.calls, 3)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	rec := &recorder{errs: []error{errors.New("401 Unauthorized")}}
	r := NewRetry(rec, &RetryConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	_, err := r.Embed(context.Background(), chunksOf("abc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-retryable")
	assert.Len(t, rec.calls, 1)
}

func TestRetryExhausted(t *testing.T) {
	boom := errors.New("502 Bad Gateway")
	rec := &recorder{errs: []error{boom, boom, boom}}
	r := NewRetry(rec, &RetryConfig{MaxRetries: 2, RetryDelay: time.Millisecond})

	_, err := r.Embed(context.Background(), chunksOf("abc"))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
	assert.Len(t, rec.calls, 3)
}

func TestRetryHonorsCancel(t *testing.T) {
	rec := &recorder{errs: []error{errors.New("503"), errors.New("503")}}
	r := NewRetry(rec, &RetryConfig{MaxRetries: 5, RetryDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Embed(ctx, chunksOf("abc"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, rec.calls, 1)
}

func TestBackoff(t *testing.T) {
	r := NewRetry(&recorder{}, &RetryConfig{RetryDelay: time.Second, MaxDelay: 5 * time.Second})
	assert.Equal(t, time.Second, r.backoff(1))
	assert.Equal(t, 2*time.Second, r.backoff(2))
	assert.Equal(t, 4*time.Second, r.backoff(3))
	assert.Equal(t, 5*time.Second, r.backoff(4))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("wrap: %w", ErrCountMismatch), false},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("429: tokens per day exceeded"), false},
		{errors.New("HTTP 504"), true},
		{errors.New("400 Bad Request"), false},
		{errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.err), "%v", tt.err)
	}
}

func TestRateLimited(t *testing.T) {
	rec := &recorder{}
	r := NewRateLimited(rec, RateLimitConfig{RequestsPerMinute: 60, BurstSize: 1})

	_, err := r.Embed(context.Background(), chunksOf("a"))
	require.NoError(t, err)

	// The bucket is empty now; the next call must wait about a second.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = r.Embed(ctx, chunksOf("b"))
	assert.Error(t, err)
	assert.Len(t, rec.calls, 1)
}

func TestRateLimitedUnlimited(t *testing.T) {
	rec := &recorder{}
	r := NewRateLimited(rec, RateLimitConfig{})
	for i := 0; i < 50; i++ {
		_, err := r.Embed(context.Background(), chunksOf("a"))
		require.NoError(t, err)
	}
	assert.Len(t, rec.calls, 50)
}
