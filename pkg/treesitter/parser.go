//go:build cgo

package treesitter

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageFunc returns a ready-to-use grammar. Each grammar package exposes
// one as GetLanguage.
type LanguageFunc func() *sitter.Language

// ErrNoTree is returned when the parser produced no tree for the input.
var ErrNoTree = errors.New("treesitter: parser returned no tree")

// Parser wraps a tree-sitter parser bound to one grammar. A Parser is not
// safe for concurrent use; give each goroutine its own.
type Parser struct {
	parser   *sitter.Parser
	language string
}

// Tree owns the parse result. Nodes obtained from it are valid until Close.
type Tree struct {
	tree *sitter.Tree
}

// Node wraps a tree-sitter node.
type Node struct {
	node *sitter.Node
}

// NewParser creates a tree-sitter parser for the given language.
// The language must be registered via Register() before calling this.
func NewParser(language string) (*Parser, error) {
	langFn, ok := GetLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s (not registered)", language)
	}

	p := sitter.NewParser()
	p.SetLanguage(langFn())

	return &Parser{parser: p, language: language}, nil
}

// Language returns the parser's language name.
func (p *Parser) Language() string { return p.language }

// Parse parses source and returns the syntax tree. Cancelling ctx aborts
// the parse.
func (p *Parser) Parse(ctx context.Context, source []byte) (*Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.language, err)
	}
	if tree == nil {
		return nil, ErrNoTree
	}
	return &Tree{tree: tree}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// RootNode returns the root of the tree, or nil when the tree is empty.
func (t *Tree) RootNode() *Node {
	root := t.tree.RootNode()
	if root == nil || root.IsNull() {
		return nil
	}
	return &Node{node: root}
}

// Close releases the tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// --- Node methods ---

// Type returns the node's type name.
func (n *Node) Type() string {
	return n.node.Type()
}

// IsNamed reports whether the node is a named grammar rule rather than an
// anonymous token.
func (n *Node) IsNamed() bool {
	return n.node.IsNamed()
}

// IsNull returns true if the node is null/invalid.
func (n *Node) IsNull() bool {
	return n.node == nil || n.node.IsNull()
}

// HasError reports whether the subtree contains syntax errors.
func (n *Node) HasError() bool {
	return n.node.HasError()
}

// Text extracts the node's text from source.
func (n *Node) Text(source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}

// ChildCount returns the number of children, named and anonymous.
func (n *Node) ChildCount() int {
	return int(n.node.ChildCount())
}

// Child returns the i-th child node, or nil.
func (n *Node) Child(i int) *Node {
	return wrap(n.node.Child(i))
}

// NamedChildCount returns the number of named children.
func (n *Node) NamedChildCount() int {
	return int(n.node.NamedChildCount())
}

// NamedChild returns the i-th named child, or nil.
func (n *Node) NamedChild(i int) *Node {
	return wrap(n.node.NamedChild(i))
}

// ChildByFieldName returns a child node by its field name, or nil.
func (n *Node) ChildByFieldName(name string) *Node {
	return wrap(n.node.ChildByFieldName(name))
}

// StartLine returns the 0-based start line of the node.
func (n *Node) StartLine() int {
	return int(n.node.StartPoint().Row)
}

// EndLine returns the 0-based end line of the node.
func (n *Node) EndLine() int {
	return int(n.node.EndPoint().Row)
}

// StartByte returns the start byte offset of the node.
func (n *Node) StartByte() int {
	return int(n.node.StartByte())
}

// EndByte returns the end byte offset of the node.
func (n *Node) EndByte() int {
	return int(n.node.EndByte())
}

func wrap(n *sitter.Node) *Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return &Node{node: n}
}
