// Package embed turns chunks into vectors. The core contract is a single
// Embedder call per batch whose output matches the input one to one.
// Retries, rate limits, caching and sub-batching are decorators layered on
// top of that contract.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// Embedding is one vector. embeddings[i] belongs to chunks[i].
type Embedding []float32

// Embedder converts an ordered batch of chunks into embeddings of the same
// length and order.
type Embedder interface {
	Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error)
}

// Func adapts a function to Embedder.
type Func func(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error)

func (f Func) Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	return f(ctx, chunks)
}

// ErrCountMismatch is returned when a backend returns a different number
// of vectors than it was given chunks.
var ErrCountMismatch = errors.New("embedding count does not match chunk count")

// CheckCount returns ErrCountMismatch unless got == want.
func CheckCount(want, got int) error {
	if want != got {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrCountMismatch, want, got)
	}
	return nil
}

// Texts returns the contents of chunks in order.
func Texts(chunks []chunk.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
