package lang

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/efebarandurmaz/sherpa/pkg/treesitter"
)

// Registry resolves extensions to language specs. It is immutable after
// construction and safe for concurrent lookups.
type Registry struct {
	byExt map[string]Spec
	specs []Spec
}

// Default returns a registry of the builtin languages whose grammars are
// available in this build.
func Default() *Registry {
	return New(treesitter.Supported, Builtin()...)
}

// New builds a registry from specs. A spec whose grammar is not available
// is left out entirely, so its extensions look exactly like unknown ones.
// A later spec claiming an extension wins over an earlier one.
func New(available func(grammar string) bool, specs ...Spec) *Registry {
	r := &Registry{byExt: make(map[string]Spec)}
	for _, s := range specs {
		if available != nil && !available(s.Grammar) {
			continue
		}
		r.specs = append(r.specs, s)
		for _, ext := range s.Extensions {
			r.byExt[normalize(ext)] = s
		}
	}
	return r
}

// Lookup returns the spec registered for ext. The leading dot is optional
// and matching ignores case.
func (r *Registry) Lookup(ext string) (Spec, bool) {
	s, ok := r.byExt[normalize(ext)]
	return s, ok
}

// ForPath looks up the spec for a file path by its extension.
func (r *Registry) ForPath(path string) (Spec, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return Spec{}, false
	}
	return r.Lookup(ext)
}

// Restrict returns a registry that only answers for the given extensions.
// An empty list returns r unchanged.
func (r *Registry) Restrict(exts []string) *Registry {
	if len(exts) == 0 {
		return r
	}
	out := &Registry{byExt: make(map[string]Spec)}
	seen := make(map[Language]bool)
	for _, ext := range exts {
		s, ok := r.Lookup(ext)
		if !ok {
			continue
		}
		out.byExt[normalize(ext)] = s
		if !seen[s.Language] {
			seen[s.Language] = true
			out.specs = append(out.specs, s)
		}
	}
	return out
}

// Languages returns the registered languages in registration order.
func (r *Registry) Languages() []Language {
	out := make([]Language, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s.Language)
	}
	return out
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Specs returns the registered specs in registration order.
func (r *Registry) Specs() []Spec {
	return append([]Spec(nil), r.specs...)
}

func normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
