// Package lang maps file extensions to languages and carries, per language,
// the grammar name and the node kinds the chunker treats as semantic units.
package lang

// Language is the tag of a supported language.
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	Rust       Language = "rust"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Java       Language = "java"
)

// Spec describes one language variant.
type Spec struct {
	Language   Language
	Extensions []string
	// Grammar is the name the grammar provider knows this language by.
	Grammar string
	// Units are node kinds that form an independently meaningful construct.
	Units map[string]bool
	// Names are node kinds whose text names the unit that contains them.
	Names map[string]bool
}

// IsUnit reports whether kind is a semantic unit in this language.
func (s Spec) IsUnit(kind string) bool { return s.Units[kind] }

// IsName reports whether kind carries a unit's name.
func (s Spec) IsName(kind string) bool { return s.Names[kind] }

func set(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

var jsUnits = []string{
	"function_declaration",
	"generator_function_declaration",
	"class_declaration",
	"method_definition",
}

var tsUnits = append([]string{
	"abstract_class_declaration",
	"interface_declaration",
	"type_alias_declaration",
	"enum_declaration",
	"module",
}, jsUnits...)

// Builtin returns the specs of every language this module knows about,
// whether or not its grammar is compiled in.
func Builtin() []Spec {
	return []Spec{
		{
			Language:   Go,
			Extensions: []string{".go"},
			Grammar:    "go",
			Units:      set("function_declaration", "method_declaration", "type_declaration"),
			Names:      set("identifier", "field_identifier", "type_identifier"),
		},
		{
			Language:   Python,
			Extensions: []string{".py", ".pyi"},
			Grammar:    "python",
			Units:      set("function_definition", "class_definition", "decorated_definition"),
			Names:      set("identifier"),
		},
		{
			Language:   Rust,
			Extensions: []string{".rs"},
			Grammar:    "rust",
			Units: set("function_item", "struct_item", "enum_item", "impl_item",
				"trait_item", "mod_item", "macro_definition"),
			Names: set("identifier", "type_identifier"),
		},
		{
			Language:   JavaScript,
			Extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
			Grammar:    "javascript",
			Units:      set(jsUnits...),
			Names:      set("identifier", "property_identifier"),
		},
		{
			Language:   TypeScript,
			Extensions: []string{".ts", ".mts", ".cts"},
			Grammar:    "typescript",
			Units:      set(tsUnits...),
			Names:      set("identifier", "property_identifier", "type_identifier"),
		},
		{
			Language:   TSX,
			Extensions: []string{".tsx"},
			Grammar:    "tsx",
			Units:      set(tsUnits...),
			Names:      set("identifier", "property_identifier", "type_identifier"),
		},
		{
			Language:   Java,
			Extensions: []string{".java"},
			Grammar:    "java",
			Units: set("class_declaration", "interface_declaration", "enum_declaration",
				"record_declaration", "method_declaration", "constructor_declaration"),
			Names: set("identifier"),
		},
	}
}
