package treesitter

import "sort"

// registry holds registered language grammars keyed by grammar name.
// It is populated from init functions and only read afterwards.
var registry = make(map[string]LanguageFunc)

// Register adds a language grammar to the global registry.
// Call this from init(); registering the same name twice replaces the
// earlier grammar.
//
//	func init() {
//	    treesitter.Register("go", golang.GetLanguage)
//	}
func Register(name string, fn LanguageFunc) {
	registry[name] = fn
}

// GetLanguage looks up a registered language by name.
func GetLanguage(name string) (LanguageFunc, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Supported reports whether a grammar with the given name is available in
// this build.
func Supported(name string) bool {
	_, ok := registry[name]
	return ok
}

// Languages returns all registered grammar names in sorted order.
func Languages() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
