// Package lang maps file extensions to Tree-sitter grammars and the
// per-language node-type sets used to classify a capture as a symbol,
// a reference, or an import. Modeled as a closed table rather than
// per-language polymorphism, per §9's explicit design note ("implement
// as a table ... avoid deep polymorphism") and grounded on the teacher's
// internal/chunker/languages.go LanguageConfig map, broadened with the
// reference/import node sets DeusData-codebase-memory-mcp's
// internal/lang/lang.go carries for the same languages.
package lang

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Spec is the per-language pattern-set row described in §4.2.
type Spec struct {
	Name     string
	Grammar  *sitter.Language
	SplitNodeKinds map[string]string // node type -> wonktype.SymbolKind string
	NameFields     []string          // field names that hold the declared name
	ScopeNodeKinds map[string]bool   // node types that establish a new scope for children
	ReferenceKinds map[string]bool   // node types treated as reference/call-site occurrences
	ImportNodeKinds map[string]bool  // node types treated as import/require/use statements
	CommentKinds    map[string]bool
}

var registry = map[string]*Spec{}
var extToLang = map[string]string{}

func register(s *Spec, exts ...string) {
	registry[s.Name] = s
	for _, e := range exts {
		extToLang[e] = s.Name
	}
}

func init() {
	register(&Spec{
		Name:    "go",
		Grammar: golang.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_declaration": "function",
			"method_declaration":   "method",
			"type_declaration":     "struct",
			"const_declaration":    "constant",
			"var_declaration":      "variable",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"function_declaration": true, "method_declaration": true},
		ReferenceKinds:  map[string]bool{"call_expression": true, "selector_expression": true},
		ImportNodeKinds: map[string]bool{"import_spec": true, "import_declaration": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".go")

	register(&Spec{
		Name:    "python",
		Grammar: python.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_definition": "function",
			"class_definition":    "class",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"function_definition": true, "class_definition": true},
		ReferenceKinds:  map[string]bool{"call": true, "attribute": true},
		ImportNodeKinds: map[string]bool{"import_statement": true, "import_from_statement": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".py")

	register(&Spec{
		Name:    "javascript",
		Grammar: javascript.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_declaration": "function",
			"class_declaration":    "class",
			"method_definition":    "method",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"function_declaration": true, "class_declaration": true, "method_definition": true},
		ReferenceKinds:  map[string]bool{"call_expression": true, "member_expression": true},
		ImportNodeKinds: map[string]bool{"import_statement": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".js", ".jsx", ".mjs")

	register(&Spec{
		Name:    "typescript",
		Grammar: typescript.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_declaration":   "function",
			"class_declaration":      "class",
			"method_definition":      "method",
			"interface_declaration":  "interface",
			"type_alias_declaration": "type_alias",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"function_declaration": true, "class_declaration": true, "method_definition": true},
		ReferenceKinds:  map[string]bool{"call_expression": true, "member_expression": true},
		ImportNodeKinds: map[string]bool{"import_statement": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".ts")

	register(&Spec{
		Name:    "tsx",
		Grammar: tsx.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_declaration":   "function",
			"class_declaration":      "class",
			"method_definition":      "method",
			"interface_declaration":  "interface",
			"type_alias_declaration": "type_alias",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"function_declaration": true, "class_declaration": true, "method_definition": true},
		ReferenceKinds:  map[string]bool{"call_expression": true, "member_expression": true},
		ImportNodeKinds: map[string]bool{"import_statement": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".tsx")

	register(&Spec{
		Name:    "rust",
		Grammar: rust.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_item": "function",
			"struct_item":   "struct",
			"enum_item":     "enum",
			"trait_item":    "trait",
			"mod_item":      "module",
			"type_item":     "type_alias",
			"const_item":    "constant",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"function_item": true, "impl_item": true, "mod_item": true},
		ReferenceKinds:  map[string]bool{"call_expression": true, "field_expression": true},
		ImportNodeKinds: map[string]bool{"use_declaration": true},
		CommentKinds:    map[string]bool{"line_comment": true, "block_comment": true},
	}, ".rs")

	register(&Spec{
		Name:    "java",
		Grammar: java.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"method_declaration":      "method",
			"class_declaration":       "class",
			"interface_declaration":   "interface",
			"constructor_declaration": "method",
			"enum_declaration":        "enum",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"method_declaration": true, "class_declaration": true},
		ReferenceKinds:  map[string]bool{"method_invocation": true, "field_access": true},
		ImportNodeKinds: map[string]bool{"import_declaration": true},
		CommentKinds:    map[string]bool{"line_comment": true, "block_comment": true},
	}, ".java")

	register(&Spec{
		Name:    "c",
		Grammar: c.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_definition": "function",
			"struct_specifier":    "struct",
			"enum_specifier":      "enum",
		},
		NameFields:      []string{"declarator", "name"},
		ScopeNodeKinds:  map[string]bool{"function_definition": true},
		ReferenceKinds:  map[string]bool{"call_expression": true},
		ImportNodeKinds: map[string]bool{"preproc_include": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".c", ".h")

	register(&Spec{
		Name:    "cpp",
		Grammar: cpp.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_definition": "function",
			"class_specifier":     "class",
			"struct_specifier":    "struct",
			"namespace_definition": "module",
		},
		NameFields:      []string{"declarator", "name"},
		ScopeNodeKinds:  map[string]bool{"function_definition": true, "class_specifier": true, "namespace_definition": true},
		ReferenceKinds:  map[string]bool{"call_expression": true, "field_expression": true},
		ImportNodeKinds: map[string]bool{"preproc_include": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx")

	register(&Spec{
		Name:    "ruby",
		Grammar: ruby.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"method":           "method",
			"class":            "class",
			"module":           "module",
			"singleton_method": "method",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"method": true, "class": true, "module": true},
		ReferenceKinds:  map[string]bool{"call": true},
		ImportNodeKinds: map[string]bool{"call": true}, // require/require_relative are `call` nodes; filtered by name in parse
		CommentKinds:    map[string]bool{"comment": true},
	}, ".rb")

	register(&Spec{
		Name:    "php",
		Grammar: php.GetLanguage(),
		SplitNodeKinds: map[string]string{
			"function_definition":      "function",
			"method_declaration":       "method",
			"class_declaration":        "class",
			"interface_declaration":    "interface",
		},
		NameFields:      []string{"name"},
		ScopeNodeKinds:  map[string]bool{"function_definition": true, "method_declaration": true, "class_declaration": true},
		ReferenceKinds:  map[string]bool{"function_call_expression": true, "member_call_expression": true},
		ImportNodeKinds: map[string]bool{"namespace_use_declaration": true},
		CommentKinds:    map[string]bool{"comment": true},
	}, ".php")
}

// ForExtension returns the Spec registered for path's extension
// (case-insensitive), or nil when the extension is unsupported.
func ForExtension(path string) *Spec {
	ext := strings.ToLower(filepath.Ext(path))
	name, ok := extToLang[ext]
	if !ok {
		return nil
	}
	return registry[name]
}

// ForName returns the Spec registered under name, or nil.
func ForName(name string) *Spec {
	return registry[name]
}

// Names returns every registered language name, in no particular
// order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
