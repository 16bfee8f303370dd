package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// Cached sends each distinct content once and serves repeats, within and
// across calls, from an LRU keyed by content hash.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, Embedding]
}

// NewCached wraps inner with a cache of size entries.
func NewCached(inner Embedder, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be greater than zero, got %d", size)
	}
	cache, err := lru.New[string, Embedding](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	out := make([]Embedding, len(chunks))
	missing := make(map[string][]int)
	var unique []chunk.Chunk

	for i, ch := range chunks {
		key := ch.Hash()
		if v, ok := c.cache.Get(key); ok {
			out[i] = clone(v)
			continue
		}
		if _, seen := missing[key]; !seen {
			unique = append(unique, ch)
		}
		missing[key] = append(missing[key], i)
	}
	if len(unique) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, unique)
	if err != nil {
		return nil, err
	}
	if err := CheckCount(len(unique), len(vectors)); err != nil {
		return nil, err
	}
	for i, ch := range unique {
		key := ch.Hash()
		c.cache.Add(key, clone(vectors[i]))
		for _, idx := range missing[key] {
			out[idx] = clone(vectors[i])
		}
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

func clone(v Embedding) Embedding {
	if v == nil {
		return nil
	}
	return append(Embedding(nil), v...)
}
