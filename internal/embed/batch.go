package embed

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// Batched splits a call into sub-batches of at most size chunks, embeds
// them in order and concatenates the results. Any sub-batch failure fails
// the whole call.
type Batched struct {
	inner Embedder
	size  int
}

// NewBatched wraps inner. size <= 0 disables splitting.
func NewBatched(inner Embedder, size int) *Batched {
	return &Batched{inner: inner, size: size}
}

func (b *Batched) Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	if b.size <= 0 || len(chunks) <= b.size {
		return b.inner.Embed(ctx, chunks)
	}
	out := make([]Embedding, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.size {
		end := min(start+b.size, len(chunks))
		vectors, err := b.inner.Embed(ctx, chunks[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		if err := CheckCount(end-start, len(vectors)); err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}
