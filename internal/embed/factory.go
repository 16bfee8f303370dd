package embed

import (
	"fmt"
	"sort"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config holds all configuration needed to create any embedder.
type Config struct {
	Provider string // "openai", "ollama", "hash"
	Model    string
	APIKey   string
	BaseURL  string // Override for self-hosted / OpenAI-compatible endpoints

	// BatchSize caps chunks per request; 0 uses the provider default.
	BatchSize int
	// Dimension is only used by the hash embedder.
	Dimension int

	Timeout    time.Duration // Per-request timeout
	MaxRetries int           // Max retry attempts
	RetryDelay time.Duration // Initial retry delay for exponential backoff

	RequestsPerMinute int // 0 = unlimited
	CacheSize         int // 0 disables the content cache
}

// Provider defaults.
const (
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIModel = "text-embedding-3-small"

	ollamaBatchSize = 512
	openAIBatchSize = 20
)

// KnownProviders maps provider presets to their default base URLs. Any
// OpenAI-compatible API can be reached with "openai" and a custom base URL.
var KnownProviders = map[string]string{
	"openai":      "https://api.openai.com/v1",
	"ollama":      "http://localhost:11434",
	"together":    "https://api.together.xyz/v1",
	"huggingface": "https://api-inference.huggingface.co/v1",
	"hash":        "",
}

// Constructor builds the undecorated embedder for a provider and reports
// its default batch size.
type Constructor func(cfg Config) (Embedder, int, error)

// Factory creates Embedders from config.
type Factory struct {
	constructors map[string]Constructor
}

// NewFactory creates a factory with the built-in providers registered.
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register("openai", newOpenAI)
	f.Register("ollama", newOllama)
	f.Register("hash", func(cfg Config) (Embedder, int, error) {
		return NewHashEmbedder(cfg.Dimension), 0, nil
	})
	return f
}

// Register adds a provider constructor under the given name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.constructors[name] = ctor
}

// Names returns the registered provider names, sorted.
func (f *Factory) Names() []string {
	out := make([]string, 0, len(f.constructors))
	for k := range f.constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Create builds an embedder and layers the decorators cfg asks for:
// cache outermost, then sub-batching, then retry and rate limit around
// every request.
func (f *Factory) Create(cfg Config) (Embedder, error) {
	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider %q, registered: %v", cfg.Provider, f.Names())
	}
	e, defaultBatch, err := ctor(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		e = NewRateLimited(e, RateLimitConfig{RequestsPerMinute: cfg.RequestsPerMinute})
	}
	if cfg.MaxRetries > 0 {
		e = NewRetry(e, &RetryConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: orDefault(cfg.RetryDelay, time.Second),
			MaxDelay:   30 * time.Second,
			Timeout:    orDefault(cfg.Timeout, 2*time.Minute),
		})
	}

	batch := cfg.BatchSize
	if batch == 0 {
		batch = defaultBatch
	}
	if batch > 0 {
		e = NewBatched(e, batch)
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCached(e, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		e = cached
	}
	return e, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

func newOpenAI(cfg Config) (Embedder, int, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []openai.Option{openai.WithEmbeddingModel(model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("initialize openai client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(openAIBatchSize))
	if err != nil {
		return nil, 0, fmt.Errorf("construct openai embedder: %w", err)
	}
	return NewTextEmbedder("openai", impl), openAIBatchSize, nil
}

func newOllama(cfg Config) (Embedder, int, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("initialize ollama client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(ollamaBatchSize))
	if err != nil {
		return nil, 0, fmt.Errorf("construct ollama embedder: %w", err)
	}
	return NewTextEmbedder("ollama", impl), ollamaBatchSize, nil
}
