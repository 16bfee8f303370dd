//go:build !cgo

package treesitter

import (
	"context"
	"errors"
	"fmt"
)

// LanguageFunc is a placeholder; no grammars can be registered without cgo.
type LanguageFunc func() any

// ErrNoTree is returned when the parser produced no tree for the input.
var ErrNoTree = errors.New("treesitter: parser returned no tree")

// Parser is a stub when tree-sitter support is not enabled.
type Parser struct{}

// Tree is a stub when tree-sitter support is not enabled.
type Tree struct{}

// Node is a stub when tree-sitter support is not enabled.
type Node struct{}

// NewParser returns an error unless built with CGO enabled.
func NewParser(language string) (*Parser, error) {
	return nil, fmt.Errorf("treesitter disabled (build with CGO enabled); requested language: %s", language)
}

func (p *Parser) Language() string { return "" }

func (p *Parser) Parse(_ context.Context, _ []byte) (*Tree, error) {
	return nil, fmt.Errorf("treesitter disabled (build with CGO enabled)")
}

func (p *Parser) Close() {}

func (t *Tree) RootNode() *Node { return nil }
func (t *Tree) Close()          {}

func (n *Node) Type() string                    { return "" }
func (n *Node) IsNamed() bool                   { return false }
func (n *Node) IsNull() bool                    { return true }
func (n *Node) HasError() bool                  { return false }
func (n *Node) Text(_ []byte) string            { return "" }
func (n *Node) ChildCount() int                 { return 0 }
func (n *Node) Child(_ int) *Node               { return nil }
func (n *Node) NamedChildCount() int            { return 0 }
func (n *Node) NamedChild(_ int) *Node          { return nil }
func (n *Node) ChildByFieldName(_ string) *Node { return nil }
func (n *Node) StartLine() int                  { return 0 }
func (n *Node) EndLine() int                    { return 0 }
func (n *Node) StartByte() int                  { return 0 }
func (n *Node) EndByte() int                    { return 0 }
