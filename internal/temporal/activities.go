package temporal

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	"go.temporal.io/sdk/activity"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/sherpa/internal/config"
	"github.com/efebarandurmaz/sherpa/internal/pipeline"
	"github.com/efebarandurmaz/sherpa/internal/scan"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	// Config is the worker's configuration. ScanInput fields override it
	// per run.
	Config  *config.Config
	Logger  *slog.Logger
	Options []pipeline.Option
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// ScanActivity builds a pipeline for input and runs it once. Progress is
// reported as heartbeats carrying the scanner state.
func ScanActivity(ctx context.Context, input ScanInput) (*ScanOutput, error) {
	if deps == nil || deps.Config == nil {
		return nil, sdktemporal.NewNonRetryableApplicationError("worker has no configuration", ErrTypeInvalidInput, nil)
	}
	cfg := apply(*deps.Config, input)

	opts := append([]pipeline.Option{}, deps.Options...)
	if deps.Logger != nil {
		opts = append(opts, pipeline.WithLogger(deps.Logger))
	}
	opts = append(opts, pipeline.WithStateHook(func(s scan.State) {
		activity.RecordHeartbeat(ctx, s.String())
	}))

	p, err := pipeline.Build(ctx, &cfg, opts...)
	if err != nil {
		return nil, classify(err)
	}
	defer p.Close()

	res, err := p.Run(ctx)
	if err != nil {
		return nil, classify(err)
	}

	out := &ScanOutput{
		Root:                res.Root,
		Collection:          p.Collection,
		Backend:             p.Backend,
		ChunksProcessed:     res.ChunksProcessed,
		EmbeddingsGenerated: res.EmbeddingsGenerated,
		FilesScanned:        res.FilesScanned,
		FilesSkipped:        res.FilesSkipped,
		FilesFailed:         res.FilesFailed,
		Languages:           make(map[string]int, len(res.Languages)),
		Duration:            res.Duration,
	}
	for l, n := range res.Languages {
		out.Languages[string(l)] = n
	}
	return out, nil
}

func apply(cfg config.Config, in ScanInput) config.Config {
	if in.Path != "" {
		cfg.Scan.Path = in.Path
	}
	if in.Collection != "" {
		cfg.Store.Collection = in.Collection
	}
	if in.ChunkSizeLimit != 0 {
		cfg.Scan.ChunkSizeLimit = in.ChunkSizeLimit
	}
	if in.Orphans != "" {
		cfg.Scan.Orphans = in.Orphans
	}
	if len(in.Extensions) > 0 {
		cfg.Scan.Extensions = in.Extensions
	}
	if len(in.Exclude) > 0 {
		cfg.Scan.Exclude = append(append([]string{}, cfg.Scan.Exclude...), in.Exclude...)
	}
	if in.Gitignore {
		cfg.Scan.Gitignore = true
	}
	if in.LenientParsing {
		cfg.Scan.LenientParsing = true
	}
	return cfg
}

// classify maps pipeline errors onto Temporal's retry model.
func classify(err error) error {
	switch {
	case errors.Is(err, config.ErrInvalid),
		errors.Is(err, scan.ErrRootNotFound),
		errors.Is(err, doublestar.ErrBadPattern),
		errors.Is(err, fs.ErrNotExist):
		return sdktemporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case errors.Is(err, scan.ErrCanceled):
		return err
	}
	var stageErr *scan.StageError
	if errors.As(err, &stageErr) {
		return sdktemporal.NewApplicationErrorWithCause(err.Error(), ErrTypeStage, err, string(stageErr.Stage))
	}
	return err
}
