//go:build cgo

package treesitter

import (
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	Register("go", golang.GetLanguage)
	Register("java", java.GetLanguage)
	Register("javascript", javascript.GetLanguage)
	Register("python", python.GetLanguage)
	Register("rust", rust.GetLanguage)
	Register("tsx", tsx.GetLanguage)
	Register("typescript", typescript.GetLanguage)
}
