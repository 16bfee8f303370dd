// Package syntax provides the tree model consumed by the chunk extractor.
//
// A Tree owns the source bytes of one file. Nodes never hold text of their
// own; they only report byte offsets into Tree.Source, so a node cannot
// outlive or disagree with the text it was parsed from.
package syntax

import (
	"sort"
	"sync"
)

// Node is a read-only view of one syntax tree node.
type Node interface {
	// Kind is the grammar's node type, e.g. "function_declaration".
	Kind() string
	// IsNamed is false for anonymous tokens such as punctuation.
	IsNamed() bool
	StartByte() int
	EndByte() int
	ChildCount() int
	// Child returns the i-th child or nil when i is out of range.
	Child(i int) Node
	// HasError reports a syntax error anywhere in the subtree.
	HasError() bool
}

// Tree is a parsed file: its path, its source, and the root node.
type Tree struct {
	Path   string
	Source []byte
	Root   Node

	once  sync.Once
	lines []int // byte offsets of each '\n'
}

// NewTree builds a tree over source.
func NewTree(path string, source []byte, root Node) *Tree {
	return &Tree{Path: path, Source: source, Root: root}
}

// Text returns the source between start and end, clamped to the source.
func (t *Tree) Text(start, end int) string {
	start = clamp(start, 0, len(t.Source))
	end = clamp(end, start, len(t.Source))
	return string(t.Source[start:end])
}

// Line returns the 1-based line that contains offset.
func (t *Tree) Line(offset int) int {
	t.once.Do(t.index)
	return sort.SearchInts(t.lines, clamp(offset, 0, len(t.Source))) + 1
}

func (t *Tree) index() {
	for i, b := range t.Source {
		if b == '\n' {
			t.lines = append(t.lines, i)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Span returns the byte length of n.
func Span(n Node) int {
	return n.EndByte() - n.StartByte()
}

// Children returns the children of n in source order.
func Children(n Node) []Node {
	count := n.ChildCount()
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}
