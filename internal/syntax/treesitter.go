package syntax

import "github.com/efebarandurmaz/sherpa/pkg/treesitter"

type tsNode struct {
	n *treesitter.Node
}

// FromTreeSitter adapts a tree-sitter node. It returns nil for a nil node
// so callers can test the result directly.
func FromTreeSitter(n *treesitter.Node) Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return tsNode{n: n}
}

func (t tsNode) Kind() string    { return t.n.Type() }
func (t tsNode) IsNamed() bool   { return t.n.IsNamed() }
func (t tsNode) StartByte() int  { return t.n.StartByte() }
func (t tsNode) EndByte() int    { return t.n.EndByte() }
func (t tsNode) ChildCount() int { return t.n.ChildCount() }
func (t tsNode) HasError() bool  { return t.n.HasError() }

func (t tsNode) Child(i int) Node {
	return FromTreeSitter(t.n.Child(i))
}
