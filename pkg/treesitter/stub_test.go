//go:build !cgo

package treesitter

import (
	"context"
	"testing"
)

func TestStubParser(t *testing.T) {
	if len(Languages()) != 0 {
		t.Fatalf("expected no grammars without cgo, got %v", Languages())
	}
	if _, err := NewParser("go"); err == nil {
		t.Fatal("expected NewParser to fail without cgo")
	}

	var p Parser
	if _, err := p.Parse(context.Background(), []byte("x")); err == nil {
		t.Error("expected Parse to fail without cgo")
	}

	// Stub node methods must not panic.
	n := &Node{}
	if !n.IsNull() {
		t.Error("expected IsNull true from stub")
	}
	if n.ChildCount() != 0 || n.Child(0) != nil {
		t.Error("expected no children from stub")
	}
}
