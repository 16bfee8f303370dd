package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/efebarandurmaz/sherpa/internal/lang"
	"github.com/efebarandurmaz/sherpa/internal/syntax"
)

const (
	// KindFile is the kind of a chunk covering a whole file that has no
	// semantic units, when no size limit is set.
	KindFile = "file"
	// KindFragment is the kind of top-level statement groups and of
	// attached-policy orphans that could not be merged into a unit.
	KindFragment = "fragment"

	// MinMaxSize is the smallest positive size limit: one chunk must be
	// able to hold any single UTF-8 rune.
	MinMaxSize = utf8.UTFMax

	partSuffix = "_part"
)

var (
	// ErrParsingFailed is returned when there is no tree to extract from.
	ErrParsingFailed = errors.New("parsing failed")
	// ErrInvalidConfig is returned by NewExtractor for unusable settings.
	ErrInvalidConfig = errors.New("invalid chunker config")
)

// OrphanPolicy decides what happens to source outside every unit, such as
// imports and file-level comments.
type OrphanPolicy int

const (
	// OrphansDrop ignores text outside units.
	OrphansDrop OrphanPolicy = iota
	// OrphansAttach prepends the text before a unit to that unit when the
	// result still fits, and emits it as fragments otherwise.
	OrphansAttach
)

func (p OrphanPolicy) String() string {
	if p == OrphansAttach {
		return "attach"
	}
	return "drop"
}

// ParseOrphanPolicy parses "drop" or "attach". Empty means drop.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return OrphansDrop, nil
	case "attach":
		return OrphansAttach, nil
	}
	return OrphansDrop, fmt.Errorf("%w: unknown orphan policy %q", ErrInvalidConfig, s)
}

// Config configures an Extractor.
type Config struct {
	// MaxSize is the byte limit per chunk. Zero means no limit.
	MaxSize int
	Orphans OrphanPolicy
}

// Extractor turns syntax trees into chunks. It holds no per-call state and
// may be shared between goroutines.
type Extractor struct {
	maxSize int
	orphans OrphanPolicy
}

// NewExtractor validates cfg. Positive limits below MinMaxSize are
// rejected.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.MaxSize < 0 {
		return nil, fmt.Errorf("%w: chunk size limit %d is negative", ErrInvalidConfig, cfg.MaxSize)
	}
	if cfg.MaxSize > 0 && cfg.MaxSize < MinMaxSize {
		return nil, fmt.Errorf("%w: chunk size limit %d is below %d bytes", ErrInvalidConfig, cfg.MaxSize, MinMaxSize)
	}
	if cfg.Orphans != OrphansDrop && cfg.Orphans != OrphansAttach {
		return nil, fmt.Errorf("%w: unknown orphan policy %d", ErrInvalidConfig, cfg.Orphans)
	}
	return &Extractor{maxSize: cfg.MaxSize, orphans: cfg.Orphans}, nil
}

// MaxSize returns the configured limit, zero when unlimited.
func (e *Extractor) MaxSize() int { return e.maxSize }

// Orphans returns the configured orphan policy.
func (e *Extractor) Orphans() OrphanPolicy { return e.orphans }

// Extract returns the chunks of tree in source order. Chunks never overlap
// and, when a limit is set, never exceed it.
func (e *Extractor) Extract(tree *syntax.Tree, spec lang.Spec) ([]Chunk, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: no tree", ErrParsingFailed)
	}
	if tree.Root == nil {
		return nil, fmt.Errorf("%w: %s", ErrParsingFailed, tree.Path)
	}

	x := &extraction{max: e.maxSize, spec: spec, src: tree.Source}
	x.walk(tree.Root)

	if len(x.pieces) == 0 {
		if x.max == 0 {
			x.emit(tree.Root.StartByte(), tree.Root.EndByte(), KindFile, "")
		} else {
			x.split(tree.Root, KindFragment, "")
		}
	}

	pieces := x.pieces
	if e.orphans == OrphansAttach {
		pieces = x.attachOrphans()
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, Chunk{
			Path:      tree.Path,
			Language:  spec.Language,
			Kind:      p.kind,
			Name:      p.name,
			StartByte: p.start,
			EndByte:   p.end,
			StartLine: tree.Line(p.start),
			EndLine:   tree.Line(p.end - 1),
			Content:   string(tree.Source[p.start:p.end]),
		})
	}
	return chunks, nil
}

type piece struct {
	start, end int
	kind, name string
}

// extraction is the state of one Extract call.
type extraction struct {
	max    int
	spec   lang.Spec
	src    []byte
	pieces []piece
}

func (x *extraction) fits(start, end int) bool {
	return x.max == 0 || end-start <= x.max
}

// walk visits n depth-first and stops descending at the first unit.
func (x *extraction) walk(n syntax.Node) {
	if x.spec.IsUnit(n.Kind()) {
		x.unit(n)
		return
	}
	for _, c := range syntax.Children(n) {
		x.walk(c)
	}
}

func (x *extraction) unit(n syntax.Node) {
	name := x.name(n)
	if x.fits(n.StartByte(), n.EndByte()) {
		x.emit(n.StartByte(), n.EndByte(), n.Kind(), name)
		return
	}
	x.split(n, n.Kind()+partSuffix, name)
}

// split breaks an oversize node into pieces: nested units are handled on
// their own, runs of other children are packed greedily, and oversize
// children are split in turn. A childless node falls back to line slicing.
func (x *extraction) split(n syntax.Node, kind, name string) {
	children := syntax.Children(n)
	if len(children) == 0 {
		x.slice(n.StartByte(), n.EndByte(), kind, name)
		return
	}

	start, end := -1, -1
	flush := func() {
		if start >= 0 {
			x.emit(start, end, kind, name)
			start, end = -1, -1
		}
	}
	for _, c := range children {
		cs, ce := c.StartByte(), c.EndByte()
		switch {
		case x.spec.IsUnit(c.Kind()):
			flush()
			x.unit(c)
		case !x.fits(cs, ce):
			flush()
			x.split(c, kind, name)
		case start >= 0 && x.fits(start, ce):
			end = ce
		default:
			flush()
			start, end = cs, ce
		}
	}
	flush()
}

// slice emits [start,end) as consecutive pieces, each cut after the last
// newline that fits, or at the last rune boundary when a line is too long.
func (x *extraction) slice(start, end int, kind, name string) {
	for _, r := range x.cuts(start, end) {
		x.emit(r[0], r[1], kind, name)
	}
}

func (x *extraction) cuts(start, end int) [][2]int {
	var out [][2]int
	for start < end {
		if x.fits(start, end) {
			return append(out, [2]int{start, end})
		}
		limit := start + x.max
		cut := bytes.LastIndexByte(x.src[start:limit], '\n')
		if cut >= 0 {
			cut = start + cut + 1
		} else {
			cut = limit
			for cut > start && !utf8.RuneStart(x.src[cut]) {
				cut--
			}
		}
		out = append(out, [2]int{start, cut})
		start = cut
	}
	return out
}

// emit records a piece unless it is empty or whitespace.
func (x *extraction) emit(start, end int, kind, name string) {
	if end <= start || blank(x.src[start:end]) {
		return
	}
	x.pieces = append(x.pieces, piece{start: start, end: end, kind: kind, name: name})
}

// name returns the text of the first name-kind child of n, looking one
// level further down for wrappers such as Go's type_spec or Python's
// decorated_definition.
func (x *extraction) name(n syntax.Node) string {
	children := syntax.Children(n)
	for _, c := range children {
		if x.spec.IsName(c.Kind()) {
			return string(x.src[c.StartByte():c.EndByte()])
		}
	}
	for _, c := range children {
		if !c.IsNamed() {
			continue
		}
		for _, gc := range syntax.Children(c) {
			if x.spec.IsName(gc.Kind()) {
				return string(x.src[gc.StartByte():gc.EndByte()])
			}
		}
	}
	return ""
}

// attachOrphans folds the non-blank text before each piece into it when
// the result fits. Text that cannot be folded, and trailing text, becomes
// fragments.
func (x *extraction) attachOrphans() []piece {
	out := make([]piece, 0, len(x.pieces))
	prev := 0
	for _, p := range x.pieces {
		gap := skipSpace(x.src, prev, p.start)
		if gap < p.start {
			if x.fits(gap, p.end) {
				p.start = gap
			} else {
				out = x.fragments(out, gap, p.start)
			}
		}
		out = append(out, p)
		prev = p.end
	}
	if gap := skipSpace(x.src, prev, len(x.src)); gap < len(x.src) {
		out = x.fragments(out, gap, len(x.src))
	}
	return out
}

func (x *extraction) fragments(out []piece, start, end int) []piece {
	for _, r := range x.cuts(start, end) {
		if !blank(x.src[r[0]:r[1]]) {
			out = append(out, piece{start: r[0], end: r[1], kind: KindFragment})
		}
	}
	return out
}

// skipSpace returns the first non-whitespace offset in [start,end), or end.
func skipSpace(src []byte, start, end int) int {
	for start < end {
		r, size := utf8.DecodeRune(src[start:end])
		if !unicode.IsSpace(r) {
			return start
		}
		start += size
	}
	return end
}

func blank(b []byte) bool {
	return len(bytes.TrimSpace(b)) == 0
}
