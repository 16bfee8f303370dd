package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// DefaultHashDimension is the vector size of the hash embedder.
const DefaultHashDimension = 256

// HashEmbedder is an offline, deterministic embedder. It hashes identifier
// tokens into a fixed number of buckets and L2-normalizes the counts, so
// equal content always yields equal vectors.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a hash embedder; dim <= 0 uses the default.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector size.
func (h *HashEmbedder) Dimension() int { return h.dim }

func (h *HashEmbedder) Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	out := make([]Embedding, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(c.Content)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) Embedding {
	v := make(Embedding, h.dim)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, tok := range tokens {
		f := fnv.New32a()
		f.Write([]byte(strings.ToLower(tok)))
		v[f.Sum32()%uint32(h.dim)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}
