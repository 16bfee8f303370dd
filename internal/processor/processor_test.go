package processor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/processor"
	"github.com/efebarandurmaz/sherpa/internal/processor/processortest"
)

func newProcessor(t *testing.T, lp *processortest.LineParsers, opts ...processor.Option) *processor.Processor {
	t.Helper()
	ex, err := chunk.NewExtractor(chunk.Config{})
	require.NoError(t, err)
	reg := lang.New(func(string) bool { return true }, lang.Builtin()...)
	return processor.New(reg, ex, append([]processor.Option{processor.WithParserFactory(lp.Factory())}, opts...)...)
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.go", []byte("package main\n\nfunc A() {}\nfunc B() {}\n"))

	lp := &processortest.LineParsers{}
	w := newProcessor(t, lp).NewWorker()
	defer w.Close()

	chunks, err := w.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "A", chunks[0].Name)
	assert.Equal(t, "func B() {}", chunks[1].Content)
	assert.Equal(t, lang.Go, chunks[1].Language)
	assert.Equal(t, 4, chunks[1].StartLine)
}

func TestProcessFileUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "README.md", []byte("# hi"))

	lp := &processortest.LineParsers{}
	w := newProcessor(t, lp).NewWorker()
	defer w.Close()

	chunks, err := w.ProcessFile(context.Background(), path)
	assert.NoError(t, err)
	assert.Nil(t, chunks)
	assert.Zero(t, lp.Created.Load(), "no parser should be created for skipped files")
}

func TestProcessFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content []byte
		op      processor.Op
		target  error
	}{
		{"invalid utf8", "bin.go", []byte{'f', 0xff, 0xfe}, processor.OpDecode, processor.ErrInvalidUTF8},
		{"no tree", "broken.go", []byte("func A() {}\n" + processortest.NoTree), processor.OpParse, chunk.ErrParsingFailed},
		{"syntax error", "bad.go", []byte("func A() {}\n))) " + processortest.Broken + "\n"), processor.OpParse, chunk.ErrParsingFailed},
		{"parser error", "fail.py", []byte("def a():\n" + processortest.Fail), processor.OpParse, processortest.ErrParse},
		{"too large", "huge.go", make([]byte, 64), processor.OpRead, processor.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			w := newProcessor(t, &processortest.LineParsers{}, processor.WithMaxFileSize(32)).NewWorker()
			defer w.Close()

			chunks, err := w.ProcessFile(context.Background(), path)
			require.Error(t, err)
			assert.Nil(t, chunks)
			assert.ErrorIs(t, err, tt.target)

			var fe *processor.FileError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.op, fe.Op)
			assert.Equal(t, path, fe.Path)
		})
	}
}

func TestProcessFileMissing(t *testing.T) {
	w := newProcessor(t, &processortest.LineParsers{}).NewWorker()
	defer w.Close()

	_, err := w.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "gone.go"))
	var fe *processor.FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, processor.OpRead, fe.Op)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkerReusesParserPerGrammar(t *testing.T) {
	lp := &processortest.LineParsers{}
	p := newProcessor(t, lp)
	goSpec, _ := p.Registry().Lookup(".go")
	pySpec, _ := p.Registry().Lookup(".py")

	w := p.NewWorker()
	for i := 0; i < 3; i++ {
		_, err := w.Process(context.Background(), "a.go", []byte("func A() {}\n"), goSpec)
		require.NoError(t, err)
	}
	_, err := w.Process(context.Background(), "a.py", []byte("def a(): pass\n"), pySpec)
	require.NoError(t, err)
	assert.EqualValues(t, 2, lp.Created.Load())

	w.Close()
	assert.EqualValues(t, 2, lp.Closed.Load())

	// A second worker never sees the first worker's parsers.
	w2 := p.NewWorker()
	defer w2.Close()
	_, err = w2.Process(context.Background(), "b.go", []byte("func B() {}\n"), goSpec)
	require.NoError(t, err)
	assert.EqualValues(t, 3, lp.Created.Load())
}

func TestProcessCanceled(t *testing.T) {
	p := newProcessor(t, &processortest.LineParsers{})
	spec, _ := p.Registry().Lookup(".go")
	w := p.NewWorker()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Process(ctx, "a.go", []byte("func A() {}\n"), spec)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessLenientParsingKeepsBrokenFiles(t *testing.T) {
	src := []byte("func A() {}\n))) " + processortest.Broken + "\n")

	strict := newProcessor(t, &processortest.LineParsers{})
	spec, _ := strict.Registry().Lookup(".go")
	w := strict.NewWorker()
	defer w.Close()
	_, err := w.Process(context.Background(), "bad.go", src, spec)
	assert.ErrorIs(t, err, chunk.ErrParsingFailed)

	lenient := newProcessor(t, &processortest.LineParsers{}, processor.WithLenientParsing(true))
	lw := lenient.NewWorker()
	defer lw.Close()
	chunks, err := lw.Process(context.Background(), "bad.go", src, spec)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A", chunks[0].Name)
}
