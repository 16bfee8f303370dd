package embed

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
)

// TextEmbedder embeds chunk contents through a langchaingo embedder.
type TextEmbedder struct {
	name string
	impl embeddings.Embedder
}

// NewTextEmbedder wraps impl. name is used in error messages.
func NewTextEmbedder(name string, impl embeddings.Embedder) *TextEmbedder {
	return &TextEmbedder{name: name, impl: impl}
}

// Name returns the provider name.
func (t *TextEmbedder) Name() string { return t.name }

func (t *TextEmbedder) Embed(ctx context.Context, chunks []chunk.Chunk) ([]Embedding, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	vectors, err := t.impl.EmbedDocuments(ctx, Texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("%s: embed %d chunks: %w", t.name, len(chunks), err)
	}
	if err := CheckCount(len(chunks), len(vectors)); err != nil {
		return nil, fmt.Errorf("%s: %w", t.name, err)
	}
	out := make([]Embedding, len(vectors))
	for i, v := range vectors {
		out[i] = v
	}
	return out, nil
}
