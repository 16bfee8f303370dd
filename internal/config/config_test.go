package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".", cfg.Scan.Path)
	assert.Equal(t, "drop", cfg.Scan.Orphans)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, BackendQdrant, cfg.Store.Backend)
	assert.Equal(t, "sherpa-scan", cfg.Temporal.TaskQueue)
	assert.Equal(t, ":8081", cfg.Temporal.HealthAddr)
	assert.Equal(t, 60*time.Second, cfg.Embedder.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("SHERPA_STORE_BACKEND", "sqlite")
	t.Setenv("SHERPA_SCAN_CHUNK_SIZE_LIMIT", "1500")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 1500, cfg.Scan.ChunkSizeLimit)
	assert.Equal(t, "sk-from-env", cfg.Embedder.APIKey)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sherpa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scan:
  chunk_size_limit: 800
  orphans: attach
  extensions: [go, py]
  exclude: ["vendor/**"]
  gitignore: true
embedder:
  provider: openai
  model: text-embedding-3-large
  api_key: sk-test
  retry_delay: 250ms
store:
  backend: neo4j
  address: neo4j://graph:7687
  password: secret
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Scan.ChunkSizeLimit)
	assert.Equal(t, "attach", cfg.Scan.Orphans)
	assert.Equal(t, []string{"go", "py"}, cfg.Scan.Extensions)
	assert.Equal(t, []string{"vendor/**"}, cfg.Scan.Exclude)
	assert.True(t, cfg.Scan.Gitignore)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedder.RetryDelay)
	assert.Equal(t, BackendNeo4j, cfg.Store.Backend)
	assert.NoError(t, cfg.Validate())

	ec := cfg.Embedder.Embed()
	assert.Equal(t, "openai", ec.Provider)
	assert.Equal(t, "text-embedding-3-large", ec.Model)
	assert.Equal(t, 3, ec.MaxRetries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sherpa.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: neo4j\n"), 0o644))
	t.Setenv("SHERPA_STORE_BACKEND", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative limit", func(c *Config) { c.Scan.ChunkSizeLimit = -1 }, "negative"},
		{"tiny limit", func(c *Config) { c.Scan.ChunkSizeLimit = 2 }, "below the minimum"},
		{"orphans", func(c *Config) { c.Scan.Orphans = "keep" }, "scan.orphans"},
		{"workers", func(c *Config) { c.Scan.Workers = -2 }, "scan.workers"},
		{"backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"sqlite path", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.SQLitePath = "" }, "sqlite_path"},
		{"provider", func(c *Config) { c.Embedder.Provider = "" }, "embedder.provider"},
		{"batch size", func(c *Config) { c.Embedder.BatchSize = -1 }, "batch_size"},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Scan.Workers = -1
	cfg.Store.Backend = "redis"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan.workers")
	assert.Contains(t, err.Error(), "store.backend")
}

func TestWarnings(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Warnings())

	cfg.Embedder.Provider = "openai"
	cfg.Store.Backend = BackendNeo4j
	cfg.Scan.MaxFileSize = 0
	warnings := strings.Join(cfg.Warnings(), "\n")
	assert.Contains(t, warnings, "api_key")
	assert.Contains(t, warnings, "password")
	assert.Contains(t, warnings, "max_file_size")
}

func TestTracingConfig(t *testing.T) {
	tc := TracingConfig{Endpoint: "otel:4317", SampleRate: 0.25}
	oc := tc.Observability()
	assert.Equal(t, "otel:4317", oc.OTLPEndpoint)
	assert.Equal(t, 0.25, oc.SampleRate)
	assert.Equal(t, "sherpa", oc.ServiceName)
	assert.False(t, oc.Insecure, "TLS unless asked otherwise")

	tc.Insecure = true
	assert.True(t, tc.Observability().Insecure)
	assert.True(t, Default().Tracing.Insecure)
}
