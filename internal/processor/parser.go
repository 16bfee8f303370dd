package processor

import (
	"context"

	"github.com/efebarandurmaz/sherpa/internal/syntax"
	"github.com/efebarandurmaz/sherpa/pkg/treesitter"
)

// Parser turns source into a syntax tree for one grammar. Parsers are not
// shared between goroutines.
type Parser interface {
	// Parse returns the root node and a func releasing it. The root is nil
	// when the parser produced no tree.
	Parse(ctx context.Context, src []byte) (root syntax.Node, release func(), err error)
	Close()
}

// ParserFactory creates a parser for a grammar name.
type ParserFactory func(grammar string) (Parser, error)

// TreeSitterParsers is the default factory, backed by pkg/treesitter.
func TreeSitterParsers(grammar string) (Parser, error) {
	p, err := treesitter.NewParser(grammar)
	if err != nil {
		return nil, err
	}
	return &tsParser{p: p}, nil
}

type tsParser struct {
	p *treesitter.Parser
}

func (t *tsParser) Parse(ctx context.Context, src []byte) (syntax.Node, func(), error) {
	tree, err := t.p.Parse(ctx, src)
	if err != nil {
		return nil, func() {}, err
	}
	return syntax.FromTreeSitter(tree.RootNode()), tree.Close, nil
}

func (t *tsParser) Close() { t.p.Close() }
