// Package processortest provides a line-based parser for tests that must
// run without tree-sitter.
package processortest

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"

	"github.com/efebarandurmaz/sherpa/internal/processor"
	"github.com/efebarandurmaz/sherpa/internal/syntax"
)

// Markers that make the line parser misbehave.
const (
	// NoTree makes Parse return a nil root.
	NoTree = "#no-tree"
	// Fail makes Parse return an error.
	Fail = "#parse-error"
	// Broken marks the line holding it as a syntax error node.
	Broken = "#syntax-error"
)

// ErrParse is returned by Parse for content containing Fail.
var ErrParse = errors.New("line parser: forced failure")

// LineParsers is a ParserFactory. Each non-blank line becomes a node: lines
// starting with "func " are Go function_declaration units, lines starting
// with "def " are Python function_definition units, everything else is a
// plain statement. The word after the keyword is the unit's identifier.
type LineParsers struct {
	Created atomic.Int64
	Closed  atomic.Int64
}

// Factory returns the ParserFactory bound to l.
func (l *LineParsers) Factory() processor.ParserFactory {
	return func(string) (processor.Parser, error) {
		l.Created.Add(1)
		return &lineParser{owner: l}, nil
	}
}

type lineParser struct {
	owner *LineParsers
}

func (p *lineParser) Close() { p.owner.Closed.Add(1) }

func (p *lineParser) Parse(ctx context.Context, src []byte) (syntax.Node, func(), error) {
	noop := func() {}
	if err := ctx.Err(); err != nil {
		return nil, noop, err
	}
	if bytes.Contains(src, []byte(Fail)) {
		return nil, noop, ErrParse
	}
	if bytes.Contains(src, []byte(NoTree)) {
		return nil, noop, nil
	}
	return Parse(src), noop, nil
}

// Parse builds the line tree for src.
func Parse(src []byte) *syntax.StaticNode {
	root := &syntax.StaticNode{Type: "source_file", End: len(src)}
	start := 0
	for start < len(src) {
		end := bytes.IndexByte(src[start:], '\n')
		if end < 0 {
			end = len(src)
		} else {
			end += start
		}
		if n := lineNode(src, start, end); n != nil {
			n.Broken = bytes.Contains(src[start:end], []byte(Broken))
			root.Children = append(root.Children, n)
		}
		start = end + 1
	}
	return root
}

func lineNode(src []byte, start, end int) *syntax.StaticNode {
	line := src[start:end]
	trimmed := bytes.TrimLeft(line, " \t")
	if len(bytes.TrimSpace(trimmed)) == 0 {
		return nil
	}
	start += len(line) - len(trimmed)
	end = start + len(bytes.TrimRight(trimmed, " \t\r"))

	for kw, kind := range map[string]string{"func ": "function_declaration", "def ": "function_definition"} {
		if !bytes.HasPrefix(trimmed, []byte(kw)) {
			continue
		}
		nameStart := start + len(kw)
		nameEnd := nameStart
		for nameEnd < end && isIdent(src[nameEnd]) {
			nameEnd++
		}
		children := []*syntax.StaticNode{
			{Type: kw[:len(kw)-1], Anon: true, Start: start, End: start + len(kw) - 1},
			syntax.Leaf("identifier", nameStart, nameEnd),
		}
		if nameEnd < end {
			children = append(children, syntax.Leaf("body", nameEnd, end))
		}
		return &syntax.StaticNode{Type: kind, Start: start, End: end, Children: children}
	}
	return syntax.Leaf("statement", start, end)
}

func isIdent(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
