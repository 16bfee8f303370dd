package syntax

// StaticNode is an in-memory Node. It backs hand-built trees in tests and
// the single-node tree used when a file has no grammar-level structure.
type StaticNode struct {
	Type string
	Anon bool
	// Broken marks this node as a syntax error.
	Broken   bool
	Start    int
	End      int
	Children []*StaticNode
}

// Leaf returns a named node with no children.
func Leaf(kind string, start, end int) *StaticNode {
	return &StaticNode{Type: kind, Start: start, End: end}
}

// Branch returns a named node spanning its first to last child.
func Branch(kind string, children ...*StaticNode) *StaticNode {
	n := &StaticNode{Type: kind, Children: children}
	if len(children) > 0 {
		n.Start = children[0].Start
		n.End = children[len(children)-1].End
	}
	return n
}

func (n *StaticNode) Kind() string    { return n.Type }
func (n *StaticNode) IsNamed() bool   { return !n.Anon }
func (n *StaticNode) StartByte() int  { return n.Start }
func (n *StaticNode) EndByte() int    { return n.End }
func (n *StaticNode) ChildCount() int { return len(n.Children) }

func (n *StaticNode) HasError() bool {
	if n.Broken {
		return true
	}
	for _, c := range n.Children {
		if c.HasError() {
			return true
		}
	}
	return false
}

func (n *StaticNode) Child(i int) Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}
