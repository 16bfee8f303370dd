package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryNames(t *testing.T) {
	assert.Equal(t, []string{"hash", "ollama", "openai"}, NewFactory().Names())
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := NewFactory().Create(Config{Provider: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestFactoryHashWithDecorators(t *testing.T) {
	e, err := NewFactory().Create(Config{Provider: "hash", Dimension: 8, BatchSize: 1, CacheSize: 4, MaxRetries: 1})
	require.NoError(t, err)

	cached, ok := e.(*Cached)
	require.True(t, ok, "cache must be the outermost layer")

	out, err := e.Embed(context.Background(), chunksOf("a b", "c", "a b"))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Len(t, out[0], 8)
	assert.Equal(t, out[0], out[2])
	assert.Equal(t, 2, cached.Len())
}

func TestFactoryRegisterCustom(t *testing.T) {
	f := NewFactory()
	rec := &recorder{}
	f.Register("rec", func(Config) (Embedder, int, error) { return rec, 2, nil })

	e, err := f.Create(Config{Provider: "rec"})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), chunksOf("a", "b", "c"))
	require.NoError(t, err)
	assert.Len(t, rec.calls, 2, "provider default batch size applies")
}

func TestFactoryBuildsRemoteProviders(t *testing.T) {
	// Construction does not contact the service.
	for _, name := range []string{"openai", "ollama"} {
		e, err := NewFactory().Create(Config{Provider: name, APIKey: "test", BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err, name)
		assert.NotNil(t, e)
	}
}
