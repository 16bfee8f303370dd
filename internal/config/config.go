// Package config loads sherpa's configuration from an optional YAML file,
// SHERPA_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/observability"
)

// Config holds all application configuration.
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
	Store    StoreConfig    `mapstructure:"store"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ScanConfig struct {
	Path string `mapstructure:"path"`
	// ChunkSizeLimit is the maximum chunk size in bytes. 0 means unlimited.
	ChunkSizeLimit int      `mapstructure:"chunk_size_limit"`
	Orphans        string   `mapstructure:"orphans"`
	Extensions     []string `mapstructure:"extensions"`
	Exclude        []string `mapstructure:"exclude"`
	Gitignore      bool     `mapstructure:"gitignore"`
	Workers        int      `mapstructure:"workers"`
	MaxFileSize    int64    `mapstructure:"max_file_size"`
	// LenientParsing chunks files with syntax errors instead of failing them.
	LenientParsing bool `mapstructure:"lenient_parsing"`
}

type EmbedderConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	BatchSize         int           `mapstructure:"batch_size"`
	Dimension         int           `mapstructure:"dimension"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	CacheSize         int           `mapstructure:"cache_size"`
}

// Embed converts the section into the embed factory's config.
func (c EmbedderConfig) Embed() embed.Config {
	return embed.Config{
		Provider:          c.Provider,
		Model:             c.Model,
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		BatchSize:         c.BatchSize,
		Dimension:         c.Dimension,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		RetryDelay:        c.RetryDelay,
		RequestsPerMinute: c.RequestsPerMinute,
		CacheSize:         c.CacheSize,
	}
}

type StoreConfig struct {
	// Backend is one of qdrant, sqlite, neo4j or memory.
	Backend    string `mapstructure:"backend"`
	Address    string `mapstructure:"address"`
	Collection string `mapstructure:"collection"`
	SQLitePath string `mapstructure:"sqlite_path"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// HealthAddr is where the worker serves its health endpoints. Empty disables them.
	HealthAddr string `mapstructure:"health_addr"`
}

type LogConfig struct {
	Verbosity int  `mapstructure:"verbosity"`
	JSON      bool `mapstructure:"json"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	// Insecure disables TLS to the collector.
	Insecure bool `mapstructure:"insecure"`
}

// Observability converts the section into the tracer's config.
func (c TracingConfig) Observability() *observability.TracingConfig {
	cfg := observability.DefaultTracingConfig()
	cfg.OTLPEndpoint = c.Endpoint
	cfg.Insecure = c.Insecure
	if c.ServiceName != "" {
		cfg.ServiceName = c.ServiceName
	}
	if c.Environment != "" {
		cfg.Environment = c.Environment
	}
	if c.SampleRate > 0 {
		cfg.SampleRate = c.SampleRate
	}
	return cfg
}

// Store backends.
const (
	BackendQdrant = "qdrant"
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

// Backends lists the accepted store.backend values.
var Backends = []string{BackendQdrant, BackendSQLite, BackendNeo4j, BackendMemory}

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.path", ".")
	v.SetDefault("scan.chunk_size_limit", 0)
	v.SetDefault("scan.orphans", chunk.OrphansDrop.String())
	v.SetDefault("scan.extensions", []string{})
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.gitignore", false)
	v.SetDefault("scan.workers", 0)
	v.SetDefault("scan.max_file_size", 4<<20)

	v.SetDefault("embedder.provider", "ollama")
	v.SetDefault("embedder.model", "")
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.batch_size", 0)
	v.SetDefault("embedder.dimension", embed.DefaultHashDimension)
	v.SetDefault("embedder.timeout", 60*time.Second)
	v.SetDefault("embedder.max_retries", 3)
	v.SetDefault("embedder.retry_delay", time.Second)
	v.SetDefault("embedder.requests_per_minute", 0)
	v.SetDefault("embedder.cache_size", 4096)

	v.SetDefault("store.backend", BackendQdrant)
	v.SetDefault("store.address", "")
	v.SetDefault("store.collection", "")
	v.SetDefault("store.sqlite_path", "sherpa.db")
	v.SetDefault("store.username", "neo4j")
	v.SetDefault("store.password", "")

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "sherpa-scan")
	v.SetDefault("temporal.health_addr", ":8081")

	v.SetDefault("log.verbosity", 0)
	v.SetDefault("log.json", false)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "sherpa")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.insecure", true)
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from path (optional) and the environment.
// Variables are named SHERPA_<SECTION>_<KEY>, e.g. SHERPA_STORE_BACKEND.
// OPENAI_API_KEY is used when no embedder API key is set.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SHERPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("embedder.api_key", "SHERPA_EMBEDDER_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, warning := range cfg.Warnings() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	return &cfg, nil
}

// Validate returns an error for settings that would make a run fail or
// misbehave. It is called before any file is read.
func (c *Config) Validate() error {
	var errs []error
	if c.Scan.ChunkSizeLimit < 0 {
		errs = append(errs, fmt.Errorf("scan.chunk_size_limit %d is negative", c.Scan.ChunkSizeLimit))
	} else if c.Scan.ChunkSizeLimit > 0 && c.Scan.ChunkSizeLimit < chunk.MinMaxSize {
		errs = append(errs, fmt.Errorf("scan.chunk_size_limit %d is below the minimum of %d bytes",
			c.Scan.ChunkSizeLimit, chunk.MinMaxSize))
	}
	if _, err := chunk.ParseOrphanPolicy(c.Scan.Orphans); err != nil {
		errs = append(errs, fmt.Errorf("scan.orphans: %w", err))
	}
	if c.Scan.Workers < 0 {
		errs = append(errs, fmt.Errorf("scan.workers %d is negative", c.Scan.Workers))
	}
	if !validBackend(c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend %q is not one of %s",
			c.Store.Backend, strings.Join(Backends, ", ")))
	}
	if c.Store.Backend == BackendSQLite && c.Store.SQLitePath == "" {
		errs = append(errs, errors.New("store.sqlite_path is empty"))
	}
	if c.Embedder.Provider == "" {
		errs = append(errs, errors.New("embedder.provider is empty"))
	}
	if c.Embedder.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("embedder.batch_size %d is negative", c.Embedder.BatchSize))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Warnings reports settings that are allowed but probably unintended.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Embedder.Provider == "openai" && c.Embedder.APIKey == "" {
		warnings = append(warnings, "embedder provider 'openai' is configured but api_key is empty")
	}
	if c.Store.Backend == BackendNeo4j && c.Store.Password == "" {
		warnings = append(warnings, "store backend 'neo4j' is configured but password is empty")
	}
	if c.Scan.MaxFileSize <= 0 {
		warnings = append(warnings, "scan.max_file_size disables the file size cap")
	}
	return warnings
}

func validBackend(name string) bool {
	for _, b := range Backends {
		if b == name {
			return true
		}
	}
	return false
}
