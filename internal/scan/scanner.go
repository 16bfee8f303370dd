// Package scan runs the indexing pipeline over a directory: it walks the
// tree, chunks every supported file on a bounded pool of workers, embeds
// all chunks in one call and stores them in one call.
//
// Per-file failures are logged and counted. Only the embed and store
// stages can fail a run.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/observability"
	"github.com/efebarandurmaz/sherpa/internal/processor"
	"github.com/efebarandurmaz/sherpa/internal/store"
)

// Failure describes one file that contributed no chunks because of an
// error.
type Failure struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

// Result is the outcome of a successful run. It is built once and not
// modified afterwards.
type Result struct {
	Root                string                `json:"root"`
	ChunksProcessed     int                   `json:"chunks_processed"`
	EmbeddingsGenerated int                   `json:"embeddings_generated"`
	FilesScanned        int                   `json:"files_scanned"`
	FilesSkipped        int                   `json:"files_skipped"`
	FilesFailed         int                   `json:"files_failed"`
	Failures            []Failure             `json:"failures,omitempty"`
	Languages           map[lang.Language]int `json:"languages,omitempty"`
	Duration            time.Duration         `json:"duration"`
}

// Scanner wires the pipeline stages together. A Scanner holds no per-run
// state and may run several scans concurrently.
type Scanner struct {
	registry  *lang.Registry
	processor *processor.Processor
	embedder  embed.Embedder
	store     store.Store

	workers   int
	logger    *slog.Logger
	exclude   []string
	gitignore bool
	onState   func(State)
	inst      *observability.Instruments
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers sets the number of files processed concurrently. Values
// below one fall back to runtime.GOMAXPROCS(0), which honors CPU quotas.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// WithLogger sets the logger used for per-file warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExclude skips paths matching any of the doublestar globs. Globs are
// matched against slash-separated paths relative to the root.
func WithExclude(globs ...string) Option {
	return func(s *Scanner) { s.exclude = append(s.exclude, globs...) }
}

// WithGitignore honors .gitignore files found in the tree.
func WithGitignore(enabled bool) Option {
	return func(s *Scanner) { s.gitignore = enabled }
}

// WithStateHook is called on every state transition of every run, from the
// goroutine that called Scan.
func WithStateHook(fn func(State)) Option {
	return func(s *Scanner) { s.onState = fn }
}

// WithInstruments records file, chunk and stage metrics.
func WithInstruments(inst *observability.Instruments) Option {
	return func(s *Scanner) { s.inst = inst }
}

// New creates a Scanner. A nil registry uses the processor's registry.
func New(registry *lang.Registry, proc *processor.Processor, embedder embed.Embedder, st store.Store, opts ...Option) *Scanner {
	if registry == nil {
		registry = proc.Registry()
	}
	s := &Scanner{
		registry:  registry,
		processor: proc,
		embedder:  embedder,
		store:     st,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Workers returns the size of the worker pool.
func (s *Scanner) Workers() int { return s.workers }

// fileResult is the slot one file writes its outcome into.
type fileResult struct {
	chunks  []chunk.Chunk
	skipped bool
	err     error
}

// Scan indexes every supported file under root. It returns ErrRootNotFound
// for a bad root, an error wrapping ErrCanceled if ctx ends while files are
// being processed, and a *StageError if embedding or storing fails.
func (s *Scanner) Scan(ctx context.Context, root string) (_ *Result, err error) {
	start := time.Now()
	info, statErr := os.Stat(root)
	if statErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, root, statErr)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}
	w, err := newWalker(root, s.exclude, s.gitignore)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartScanSpan(ctx, root, s.workers)
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	s.transition(Scanning)
	paths, err := w.files(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.transition(Canceled)
			return nil, canceled(ctxErr)
		}
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	slots := s.process(ctx, paths)
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.transition(Canceled)
		return nil, canceled(ctxErr)
	}

	res := &Result{Root: root, Languages: make(map[lang.Language]int)}
	var chunks []chunk.Chunk
	for i, slot := range slots {
		switch {
		case slot.skipped:
			res.FilesSkipped++
			s.inst.File(ctx, observability.OutcomeSkipped)
		case slot.err != nil:
			res.FilesFailed++
			res.Failures = append(res.Failures, failure(paths[i], slot.err))
			s.inst.File(ctx, observability.OutcomeFailed)
			s.logger.Warn("skipping file", "path", paths[i], "error", slot.err)
		default:
			res.FilesScanned++
			s.inst.File(ctx, observability.OutcomeIndexed)
			for _, c := range slot.chunks {
				res.Languages[c.Language]++
			}
			chunks = append(chunks, slot.chunks...)
		}
	}
	for l, n := range res.Languages {
		s.inst.Chunks(ctx, string(l), n)
	}
	s.logger.Debug("scan finished", "files", res.FilesScanned, "skipped", res.FilesSkipped,
		"failed", res.FilesFailed, "chunks", len(chunks))

	if len(chunks) == 0 {
		s.transition(Done)
		res.Duration = time.Since(start)
		observability.RecordScanResult(span, res.FilesScanned, res.FilesFailed, 0)
		return res, nil
	}

	s.transition(Embedding)
	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		s.transition(Failed)
		return nil, &StageError{Stage: StageEmbedding, Err: err}
	}

	s.transition(Storing)
	if err := s.persist(ctx, chunks, vectors); err != nil {
		s.transition(Failed)
		return nil, &StageError{Stage: StageStoring, Err: err}
	}

	s.transition(Done)
	res.ChunksProcessed = len(chunks)
	res.EmbeddingsGenerated = len(vectors)
	res.Duration = time.Since(start)
	observability.RecordScanResult(span, res.FilesScanned, res.FilesFailed, res.ChunksProcessed)
	return res, nil
}

// process chunks paths on the worker pool. Slot i holds the outcome of
// paths[i], so merging the slots in order is independent of scheduling.
func (s *Scanner) process(ctx context.Context, paths []string) []fileResult {
	slots := make([]fileResult, len(paths))
	pool := make(chan *processor.Worker, s.workers)
	for range s.workers {
		pool <- s.processor.NewWorker()
	}
	defer func() {
		close(pool)
		for w := range pool {
			w.Close()
		}
	}()

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, path := range paths {
		if _, ok := s.registry.ForPath(path); !ok {
			slots[i].skipped = true
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			w := <-pool
			defer func() { pool <- w }()

			fctx, span := observability.StartFileSpan(ctx, path)
			defer span.End()
			chunks, err := w.ProcessFile(fctx, path)
			observability.RecordError(span, err)
			slots[i] = fileResult{chunks: chunks, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

func (s *Scanner) embed(ctx context.Context, chunks []chunk.Chunk) (_ []embed.Embedding, err error) {
	ctx, span := observability.StartStageSpan(ctx, string(StageEmbedding), len(chunks))
	start := time.Now()
	defer func() {
		s.inst.Stage(ctx, string(StageEmbedding), time.Since(start), err)
		observability.RecordError(span, err)
		span.End()
	}()

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if err := embed.CheckCount(len(chunks), len(vectors)); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (s *Scanner) persist(ctx context.Context, chunks []chunk.Chunk, vectors []embed.Embedding) (err error) {
	ctx, span := observability.StartStageSpan(ctx, string(StageStoring), len(chunks))
	start := time.Now()
	defer func() {
		s.inst.Stage(ctx, string(StageStoring), time.Since(start), err)
		observability.RecordError(span, err)
		span.End()
	}()
	return s.store.StoreChunks(ctx, chunks, vectors)
}

func (s *Scanner) transition(st State) {
	if s.onState != nil {
		s.onState(st)
	}
}

func failure(path string, err error) Failure {
	f := Failure{Path: path, Error: err.Error()}
	var fe *processor.FileError
	if errors.As(err, &fe) {
		f.Op = string(fe.Op)
		f.Error = fe.Err.Error()
	}
	return f
}

// LanguageNames returns the languages present in r sorted by name.
func (r *Result) LanguageNames() []string {
	names := make([]string, 0, len(r.Languages))
	for l := range r.Languages {
		names = append(names, string(l))
	}
	sort.Strings(names)
	return names
}
