// Package processor turns one source file into chunks: it reads the file,
// picks its grammar, parses it and runs the chunk extractor. Failures are
// returned as *FileError and never affect other files.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/syntax"
)

// DefaultMaxFileSize is the largest file read by default (4 MiB).
const DefaultMaxFileSize = 4 << 20

// Processor holds what every worker shares: the registry, the extractor
// and the parser factory. Parsers themselves live in Workers.
type Processor struct {
	registry    *lang.Registry
	extractor   *chunk.Extractor
	parsers     ParserFactory
	maxFileSize int64
	lenient     bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithParserFactory replaces the tree-sitter parser factory.
func WithParserFactory(f ParserFactory) Option {
	return func(p *Processor) { p.parsers = f }
}

// WithMaxFileSize sets the size cap. Zero or negative disables it.
func WithMaxFileSize(n int64) Option {
	return func(p *Processor) { p.maxFileSize = n }
}

// WithLenientParsing chunks files whose tree contains syntax errors
// instead of failing them. tree-sitter recovers from most errors, so the
// result is usually usable but may hold garbage.
func WithLenientParsing(enabled bool) Option {
	return func(p *Processor) { p.lenient = enabled }
}

// New creates a Processor.
func New(registry *lang.Registry, extractor *chunk.Extractor, opts ...Option) *Processor {
	p := &Processor{
		registry:    registry,
		extractor:   extractor,
		parsers:     TreeSitterParsers,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the language registry.
func (p *Processor) Registry() *lang.Registry { return p.registry }

// Extractor returns the chunk extractor.
func (p *Processor) Extractor() *chunk.Extractor { return p.extractor }

// NewWorker returns a Worker with its own parsers. Call Close when done.
func (p *Processor) NewWorker() *Worker {
	return &Worker{proc: p, parsers: make(map[string]Parser)}
}

// Worker processes files one at a time. It lazily creates one parser per
// grammar and reuses it for later files. A Worker must not be shared
// between goroutines.
type Worker struct {
	proc    *Processor
	parsers map[string]Parser
}

// ProcessFile reads path and returns its chunks. Files with an unsupported
// extension return (nil, nil) without being read.
func (w *Worker) ProcessFile(ctx context.Context, path string) ([]chunk.Chunk, error) {
	spec, ok := w.proc.registry.ForPath(path)
	if !ok {
		return nil, nil
	}

	if limit := w.proc.maxFileSize; limit > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &FileError{Path: path, Op: OpRead, Err: err}
		}
		if info.Size() > limit {
			return nil, &FileError{Path: path, Op: OpRead,
				Err: fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), limit)}
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Op: OpRead, Err: err}
	}
	if !utf8.Valid(content) {
		return nil, &FileError{Path: path, Op: OpDecode, Err: ErrInvalidUTF8}
	}
	return w.Process(ctx, path, content, spec)
}

// Process parses content with spec's grammar and extracts its chunks. A
// tree with syntax errors fails with chunk.ErrParsingFailed unless the
// processor is lenient.
func (w *Worker) Process(ctx context.Context, path string, content []byte, spec lang.Spec) ([]chunk.Chunk, error) {
	parser, err := w.parser(spec.Grammar)
	if err != nil {
		return nil, &FileError{Path: path, Op: OpParse, Err: err}
	}

	root, release, err := parser.Parse(ctx, content)
	if err != nil {
		return nil, &FileError{Path: path, Op: OpParse, Err: err}
	}
	defer release()

	if root != nil && root.HasError() && !w.proc.lenient {
		return nil, &FileError{Path: path, Op: OpParse, Err: fmt.Errorf("%w: syntax errors in tree", chunk.ErrParsingFailed)}
	}

	chunks, err := w.proc.extractor.Extract(syntax.NewTree(path, content, root), spec)
	if err != nil {
		op := OpExtract
		if errors.Is(err, chunk.ErrParsingFailed) {
			op = OpParse
		}
		return nil, &FileError{Path: path, Op: op, Err: err}
	}
	return chunks, nil
}

func (w *Worker) parser(grammar string) (Parser, error) {
	if p, ok := w.parsers[grammar]; ok {
		return p, nil
	}
	p, err := w.proc.parsers(grammar)
	if err != nil {
		return nil, fmt.Errorf("create %s parser: %w", grammar, err)
	}
	w.parsers[grammar] = p
	return p, nil
}

// Close releases the worker's parsers.
func (w *Worker) Close() {
	for name, p := range w.parsers {
		p.Close()
		delete(w.parsers, name)
	}
}
