// Package parse runs Tree-sitter over a single file's byte buffer and
// extracts symbols, references, and import targets using the per-language
// node-type tables in internal/lang. The walk-and-capture shape (recurse,
// convert 0-indexed Tree-sitter points to 1-indexed lines, pull a name
// out of a declaration node via ChildByFieldName with a fallback search)
// is grounded on the teacher's internal/chunker/ast.go walkTree /
// nodeToChunk / extractNodeName, generalized from "chunk boundaries" to
// "symbol/reference/import captures".
package parse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"wonk/internal/lang"
	"wonk/internal/wonktype"
)

// Result holds everything extracted from one file.
type Result struct {
	Language   string
	Symbols    []wonktype.Symbol
	References []wonktype.Reference
	Imports    []string
}

// File parses content (the raw bytes of relPath) and extracts symbols,
// references, and imports per the language spec registered for relPath's
// extension. Returns (nil, false) when the extension has no grammar —
// the caller still records a `files` row with no symbols, per §4.2.
func File(relPath string, content []byte) (*Result, bool) {
	spec := lang.ForExtension(relPath)
	if spec == nil {
		return nil, false
	}

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		// Parse errors inside a file never fail the pipeline (§4.2);
		// there is simply nothing to capture for this file.
		return &Result{Language: spec.Name}, true
	}
	defer tree.Close()

	res := &Result{Language: spec.Name}
	scopeStack := []string{}

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		kind := node.Type()

		if symKind, ok := spec.SplitNodeKinds[kind]; ok {
			name := extractName(node, content, spec.NameFields)
			if name != "" {
				sym := wonktype.Symbol{
					Name:      name,
					Kind:      wonktype.SymbolKind(symKind),
					File:      relPath,
					Line:      int(node.StartPoint().Row) + 1,
					Col:       int(node.StartPoint().Column),
					EndLine:   endLine(node),
					Scope:     currentScope(scopeStack),
					Signature: signatureLine(node, content),
					Language:  spec.Name,
				}
				res.Symbols = append(res.Symbols, sym)

				if spec.ScopeNodeKinds[kind] {
					scopeStack = append(scopeStack, name)
					for i := 0; i < int(node.ChildCount()); i++ {
						walk(node.Child(i))
					}
					scopeStack = scopeStack[:len(scopeStack)-1]
					return
				}
			}
		} else if spec.ImportNodeKinds[kind] && importTarget(node, content, spec) != "" {
			res.Imports = append(res.Imports, importTarget(node, content, spec))
		} else if spec.ReferenceKinds[kind] {
			name := callName(node, content)
			if name != "" {
				res.References = append(res.References, wonktype.Reference{
					Name:    name,
					File:    relPath,
					Line:    int(node.StartPoint().Row) + 1,
					Col:     int(node.StartPoint().Column),
					Context: sourceLine(node, content),
				})
			}
		}

		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}

	walk(tree.RootNode())
	return res, true
}

func currentScope(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func endLine(node *sitter.Node) int {
	end := int(node.EndPoint().Row) + 1
	if node.EndPoint().Column == 0 && end > int(node.StartPoint().Row)+1 {
		end--
	}
	return end
}

// extractName pulls a declared name out of a definition node, trying
// each configured field in order and falling back to the first
// identifier-like child, mirroring extractNodeName's fallback search.
func extractName(node *sitter.Node, content []byte, fields []string) string {
	for _, f := range fields {
		if n := node.ChildByFieldName(f); n != nil {
			return textOf(n, content)
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier", "property_identifier", "type_identifier", "field_identifier", "constant":
			return textOf(child, content)
		}
	}
	return ""
}

func callName(node *sitter.Node, content []byte) string {
	if fn := node.ChildByFieldName("function"); fn != nil {
		return lastSegment(textOf(fn, content))
	}
	if name := node.ChildByFieldName("name"); name != nil {
		return textOf(name, content)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "identifier" {
			return textOf(node.Child(i), content)
		}
	}
	return ""
}

func lastSegment(s string) string {
	if i := strings.LastIndexAny(s, ".:"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func importTarget(node *sitter.Node, content []byte, spec *lang.Spec) string {
	text := textOf(node, content)
	// Ruby's require/require_relative are generic `call` nodes shared
	// with ordinary method calls; only treat them as imports here.
	if spec.Name == "ruby" {
		if !strings.Contains(text, "require") {
			return ""
		}
	}
	// Pull the quoted literal out of the statement when present;
	// otherwise fall back to the full statement text for the blob.
	if start := strings.IndexAny(text, "\"'"); start >= 0 {
		quote := text[start]
		if end := strings.IndexByte(text[start+1:], quote); end >= 0 {
			return text[start+1 : start+1+end]
		}
	}
	return strings.TrimSpace(text)
}

func signatureLine(node *sitter.Node, content []byte) string {
	return strings.TrimSpace(sourceLine(node, content))
}

func sourceLine(node *sitter.Node, content []byte) string {
	start := int(node.StartPoint().Row)
	lines := strings.Split(string(content), "\n")
	if start < 0 || start >= len(lines) {
		return ""
	}
	return lines[start]
}

func textOf(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}
