package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/sherpa/internal/config"
	"github.com/efebarandurmaz/sherpa/internal/metrics"
	"github.com/efebarandurmaz/sherpa/internal/observability"
	"github.com/efebarandurmaz/sherpa/internal/pipeline"
	"github.com/efebarandurmaz/sherpa/internal/scan"
)

type scanFlags struct {
	configPath     string
	path           string
	chunkSizeLimit int
	orphans        string
	extensions     []string
	exclude        []string
	gitignore      bool
	lenient        bool
	workers        int
	embedder       string
	model          string
	address        string
	backend        string
	collection     string
	dryRun         bool
	jsonReport     bool
	jsonLogs       bool
	verbose        int
	quiet          bool
}

func newScanCmd() *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Chunk, embed and store every supported file under a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			return runScan(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Config file path")
	fl.StringVar(&f.path, "path", ".", "Directory to scan")
	fl.IntVar(&f.chunkSizeLimit, "chunk-size-limit", 0, "Maximum chunk size in bytes (0 = unlimited)")
	fl.StringVar(&f.orphans, "orphans", "drop", "Text outside functions and classes: drop or attach")
	fl.StringSliceVar(&f.extensions, "extensions", nil, "Only scan these extensions, e.g. go,py")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "Glob of paths to skip (repeatable)")
	fl.BoolVar(&f.gitignore, "gitignore", false, "Honor .gitignore files")
	fl.BoolVar(&f.lenient, "lenient", false, "Chunk files with syntax errors instead of skipping them")
	fl.IntVar(&f.workers, "workers", 0, "Files processed in parallel (0 = GOMAXPROCS)")
	fl.StringVar(&f.embedder, "embedder", "", "Embedding provider (see 'sherpa providers')")
	fl.StringVar(&f.model, "model", "", "Embedding model")
	fl.StringVar(&f.address, "address", "", "Store address")
	fl.StringVar(&f.backend, "store", "", "Store backend: qdrant, sqlite, neo4j or memory")
	fl.StringVar(&f.collection, "collection", "", "Collection name (default: directory name)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Use the offline embedder and an in-memory store")
	fl.BoolVar(&f.jsonReport, "json", false, "Print the report as JSON")
	fl.BoolVar(&f.jsonLogs, "log-json", false, "Write logs as JSON")
	fl.CountVarP(&f.verbose, "verbose", "v", "Increase log verbosity (-v debug, -vv with caller)")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Only log warnings and errors")
	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (f scanFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("path") {
		cfg.Scan.Path = f.path
	}
	if set("chunk-size-limit") {
		cfg.Scan.ChunkSizeLimit = f.chunkSizeLimit
	}
	if set("orphans") {
		cfg.Scan.Orphans = f.orphans
	}
	if set("extensions") {
		cfg.Scan.Extensions = f.extensions
	}
	if set("exclude") {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, f.exclude...)
	}
	if set("gitignore") {
		cfg.Scan.Gitignore = f.gitignore
	}
	if set("lenient") {
		cfg.Scan.LenientParsing = f.lenient
	}
	if set("workers") {
		cfg.Scan.Workers = f.workers
	}
	if set("embedder") {
		cfg.Embedder.Provider = f.embedder
	}
	if set("model") {
		cfg.Embedder.Model = f.model
	}
	if set("address") {
		cfg.Store.Address = f.address
	}
	if set("store") {
		cfg.Store.Backend = f.backend
	}
	if set("collection") {
		cfg.Store.Collection = f.collection
	}
	if set("verbose") {
		cfg.Log.Verbosity = f.verbose
	}
	if set("log-json") {
		cfg.Log.JSON = f.jsonLogs
	}
}

func runScan(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, f scanFlags) error {
	logger := observability.NewLogger(stderr, observability.LogConfig{
		Verbosity: cfg.Log.Verbosity,
		Quiet:     f.quiet,
		JSON:      cfg.Log.JSON,
	})
	slog.SetDefault(logger)

	tp, err := observability.InitTracing(ctx, cfg.Tracing.Observability())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	inst, err := observability.NewInstruments(nil)
	if err != nil {
		return err
	}

	p, err := pipeline.Build(ctx, cfg,
		pipeline.WithLogger(logger),
		pipeline.WithDryRun(f.dryRun),
		pipeline.WithInstruments(inst),
		pipeline.WithStateHook(func(s scan.State) { logger.Debug("scan state", "state", s) }),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	report := metrics.New(p.Root, p.Embedder, p.Backend)
	report.Collection = p.Collection
	report.DryRun = p.DryRun

	logger.Info("scanning", "path", p.Root, "store", p.Backend, "collection", p.Collection)
	res, err := p.Run(ctx)
	if res != nil {
		report.Collect(res)
	}
	report.Finish(err)

	if f.jsonReport {
		data, jerr := report.JSON()
		if jerr != nil {
			return jerr
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		report.PrintSummary(stdout)
	}
	return err
}
