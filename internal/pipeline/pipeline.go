// Package pipeline builds a ready-to-run scanner from configuration. The
// CLI and the Temporal worker share it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/config"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/observability"
	"github.com/efebarandurmaz/sherpa/internal/processor"
	"github.com/efebarandurmaz/sherpa/internal/scan"
	"github.com/efebarandurmaz/sherpa/internal/secrets"
	"github.com/efebarandurmaz/sherpa/internal/store"
	"github.com/efebarandurmaz/sherpa/internal/store/neo4j"
	"github.com/efebarandurmaz/sherpa/internal/store/qdrant"
	"github.com/efebarandurmaz/sherpa/internal/store/sqlite"
)

// Pipeline is a scanner together with the resources it owns.
type Pipeline struct {
	Scanner    *scan.Scanner
	Store      store.Store
	Registry   *lang.Registry
	Root       string
	Collection string
	Embedder   string
	Backend    string
	DryRun     bool
}

type options struct {
	logger    *slog.Logger
	dryRun    bool
	onState   func(scan.State)
	inst      *observability.Instruments
	factory   *embed.Factory
	parsers   processor.ParserFactory
	registry  *lang.Registry
	openStore StoreOpener
	secrets   *secrets.Resolver
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the scanner's logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithDryRun replaces the configured embedder with the offline hash
// embedder and the configured store with an in-memory one, so nothing
// leaves the process.
func WithDryRun(enabled bool) Option { return func(o *options) { o.dryRun = enabled } }

// WithStateHook forwards scanner state transitions.
func WithStateHook(fn func(scan.State)) Option { return func(o *options) { o.onState = fn } }

// WithInstruments records scan metrics.
func WithInstruments(inst *observability.Instruments) Option {
	return func(o *options) { o.inst = inst }
}

// WithEmbedFactory replaces the default embedder factory.
func WithEmbedFactory(f *embed.Factory) Option { return func(o *options) { o.factory = f } }

// WithParserFactory replaces the tree-sitter parsers.
func WithParserFactory(f processor.ParserFactory) Option {
	return func(o *options) { o.parsers = f }
}

// WithRegistry replaces lang.Default() as the base registry.
func WithRegistry(r *lang.Registry) Option { return func(o *options) { o.registry = r } }

// WithStoreOpener replaces OpenStore.
func WithStoreOpener(fn StoreOpener) Option { return func(o *options) { o.openStore = fn } }

// WithSecrets replaces the resolver for env: and file: credential references.
func WithSecrets(r *secrets.Resolver) Option { return func(o *options) { o.secrets = r } }

// StoreOpener connects to the configured backend.
type StoreOpener func(ctx context.Context, cfg config.StoreConfig, collection string) (store.Store, error)

// Build validates cfg and assembles the pipeline for cfg.Scan.Path. The
// returned Pipeline must be closed.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := options{
		logger:    slog.Default(),
		factory:   embed.NewFactory(),
		openStore: OpenStore,
		secrets:   secrets.NewResolver(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Scan.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", cfg.Scan.Path, err)
	}

	registry := o.registry
	if registry == nil {
		registry = lang.Default()
	}
	if len(cfg.Scan.Extensions) > 0 {
		registry = registry.Restrict(cfg.Scan.Extensions)
		if len(registry.Extensions()) == 0 {
			return nil, fmt.Errorf("%w: no supported language among extensions %v", config.ErrInvalid, cfg.Scan.Extensions)
		}
	}

	orphans, err := chunk.ParseOrphanPolicy(cfg.Scan.Orphans)
	if err != nil {
		return nil, err
	}
	extractor, err := chunk.NewExtractor(chunk.Config{MaxSize: cfg.Scan.ChunkSizeLimit, Orphans: orphans})
	if err != nil {
		return nil, err
	}
	procOpts := []processor.Option{
		processor.WithMaxFileSize(cfg.Scan.MaxFileSize),
		processor.WithLenientParsing(cfg.Scan.LenientParsing),
	}
	if o.parsers != nil {
		procOpts = append(procOpts, processor.WithParserFactory(o.parsers))
	}
	proc := processor.New(registry, extractor, procOpts...)

	embedCfg := cfg.Embedder.Embed()
	if o.dryRun {
		embedCfg = embed.Config{Provider: "hash", Dimension: cfg.Embedder.Dimension}
	} else if embedCfg.APIKey, err = o.secrets.Resolve(ctx, embedCfg.APIKey); err != nil {
		return nil, fmt.Errorf("embedder api key: %w", err)
	}
	embedder, err := o.factory.Create(embedCfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	collection := cfg.Store.Collection
	if collection == "" {
		collection = store.CollectionName(root)
	}
	backend := cfg.Store.Backend
	var st store.Store
	if o.dryRun {
		backend = config.BackendMemory
		st = store.NewMemory()
	} else {
		storeCfg := cfg.Store
		if storeCfg.Password, err = o.secrets.Resolve(ctx, storeCfg.Password); err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
		st, err = o.openStore(ctx, storeCfg, collection)
		if err != nil {
			return nil, fmt.Errorf("opening %s store: %w", backend, err)
		}
	}

	scanOpts := []scan.Option{
		scan.WithWorkers(cfg.Scan.Workers),
		scan.WithLogger(o.logger),
		scan.WithExclude(cfg.Scan.Exclude...),
		scan.WithGitignore(cfg.Scan.Gitignore),
	}
	if o.onState != nil {
		scanOpts = append(scanOpts, scan.WithStateHook(o.onState))
	}
	if o.inst != nil {
		scanOpts = append(scanOpts, scan.WithInstruments(o.inst))
	}

	return &Pipeline{
		Scanner:    scan.New(registry, proc, embedder, st, scanOpts...),
		Store:      st,
		Registry:   registry,
		Root:       root,
		Collection: collection,
		Embedder:   embedCfg.Provider,
		Backend:    backend,
		DryRun:     o.dryRun,
	}, nil
}

// Run scans the pipeline's root.
func (p *Pipeline) Run(ctx context.Context) (*scan.Result, error) {
	return p.Scanner.Scan(ctx, p.Root)
}

// Close releases the store.
func (p *Pipeline) Close() error {
	if p.Store == nil {
		return nil
	}
	return p.Store.Close()
}

// OpenStore connects to the backend named by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig, collection string) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendQdrant:
		addr := cfg.Address
		if addr == "" {
			addr = qdrant.DefaultURL
		}
		s, err := qdrant.New(addr, collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendNeo4j:
		addr := cfg.Address
		if addr == "" {
			addr = neo4j.DefaultURI
		}
		s, err := neo4j.New(ctx, addr, cfg.Username, cfg.Password, collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalid, cfg.Backend)
}
