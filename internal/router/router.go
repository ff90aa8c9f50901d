// Package router dispatches each query command to its primary backend
// — the structural symbol/reference index — and falls back to the
// text scanner's per-language heuristics when the primary returns
// nothing or no index exists. Grounded on original_source/src/router.rs's
// QueryRouter: try-db-then-grep-on-empty for every query method, and
// its per-language heuristic grep patterns, re-expressed as Go regexes
// over internal/scan instead of rusqlite + a standalone grep helper.
package router

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"wonk/internal/scan"
	"wonk/internal/store"
	"wonk/internal/wonkerr"
	"wonk/internal/wonktype"
)

// Router answers queries against an optionally-present index,
// falling back to scan.Scan when the index is absent or comes up
// empty.
type Router struct {
	DB       *store.DB // nil means grep-only mode
	RepoRoot string
}

// New builds a Router. db may be nil, in which case every query
// resolves through the text-scanner fallback.
func New(db *store.DB, repoRoot string) *Router {
	return &Router{DB: db, RepoRoot: repoRoot}
}

// HasIndex reports whether a structural index backs this router.
func (r *Router) HasIndex() bool { return r.DB != nil }

// --- sym -------------------------------------------------------------

// Symbols resolves `sym <name>`: exact or substring match against the
// symbol table, optionally filtered by kind, falling back to
// per-language definition heuristics over the text scanner.
func (r *Router) Symbols(name string, kind wonktype.SymbolKind, exact bool) ([]wonktype.Symbol, error) {
	if r.DB != nil {
		results, err := r.symbolsDB(name, kind, exact)
		if err != nil {
			return nil, wonkerr.Wrap(wonkerr.QueryFailed, "querying symbols", err)
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return r.symbolsGrep(name, kind)
}

func (r *Router) symbolsDB(name string, kind wonktype.SymbolKind, exact bool) ([]wonktype.Symbol, error) {
	if exact {
		all, err := r.DB.SymbolsByExactName(name)
		if err != nil {
			return nil, err
		}
		return filterByKind(all, kind), nil
	}
	results, err := r.DB.FindSymbols(name, kind, 500)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func filterByKind(symbols []wonktype.Symbol, kind wonktype.SymbolKind) []wonktype.Symbol {
	if kind == "" {
		return symbols
	}
	var out []wonktype.Symbol
	for _, s := range symbols {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (r *Router) symbolsGrep(name string, kind wonktype.SymbolKind) ([]wonktype.Symbol, error) {
	pattern := symbolGrepPattern(name, kind)
	var symbols []wonktype.Symbol
	err := scan.Scan(r.RepoRoot, scan.Options{Pattern: pattern, RegexMode: true}, func(m scan.Match) {
		symbols = append(symbols, wonktype.Symbol{
			Name:      name,
			Kind:      fallbackKind(kind),
			File:      m.File,
			Line:      m.Line,
			Col:       m.Col,
			Signature: strings.TrimSpace(m.Content),
		})
	})
	return symbols, err
}

func fallbackKind(kind wonktype.SymbolKind) wonktype.SymbolKind {
	if kind != "" {
		return kind
	}
	return wonktype.KindFunction
}

// --- ref -------------------------------------------------------------

// References resolves `ref <name>`, optionally restricted to paths.
func (r *Router) References(name string, paths []string) ([]wonktype.Reference, error) {
	if r.DB != nil {
		results, err := r.DB.ReferencesByName(name, 1000)
		if err != nil {
			return nil, wonkerr.Wrap(wonkerr.QueryFailed, "querying references", err)
		}
		if len(paths) > 0 {
			var kept []wonktype.Reference
			for _, ref := range results {
				for _, p := range paths {
					p = strings.TrimRight(p, "/")
					if ref.File == p || strings.HasPrefix(ref.File, p+"/") {
						kept = append(kept, ref)
						break
					}
				}
			}
			results = kept
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return r.referencesGrep(name, paths)
}

func (r *Router) referencesGrep(name string, paths []string) ([]wonktype.Reference, error) {
	pattern := `\b` + regexp.QuoteMeta(name) + `\b`
	var refs []wonktype.Reference
	err := scan.Scan(r.RepoRoot, scan.Options{Pattern: pattern, RegexMode: true, Paths: paths}, func(m scan.Match) {
		refs = append(refs, wonktype.Reference{
			Name:    name,
			File:    m.File,
			Line:    m.Line,
			Col:     m.Col,
			Context: m.Content,
		})
	})
	return refs, err
}

// --- sig -------------------------------------------------------------

// Signatures resolves `sig <name>`: symbols of kind function/method,
// falling back to the same definition heuristics as Symbols.
func (r *Router) Signatures(name string) ([]wonktype.Symbol, error) {
	if r.DB != nil {
		all, err := r.DB.SymbolsByExactName(name)
		if err != nil {
			return nil, wonkerr.Wrap(wonkerr.QueryFailed, "querying signatures", err)
		}
		var results []wonktype.Symbol
		for _, s := range all {
			if s.Kind == wonktype.KindFunction || s.Kind == wonktype.KindMethod {
				results = append(results, s)
			}
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return r.signaturesGrep(name)
}

func (r *Router) signaturesGrep(name string) ([]wonktype.Symbol, error) {
	pattern := `(fn|pub\s+fn|def|function|func)\s+` + regexp.QuoteMeta(name) + `\s*\(`
	var symbols []wonktype.Symbol
	err := scan.Scan(r.RepoRoot, scan.Options{Pattern: pattern, RegexMode: true}, func(m scan.Match) {
		symbols = append(symbols, wonktype.Symbol{
			Name:      name,
			Kind:      wonktype.KindFunction,
			File:      m.File,
			Line:      m.Line,
			Col:       m.Col,
			Signature: strings.TrimSpace(m.Content),
		})
	})
	return symbols, err
}

// --- ls --------------------------------------------------------------

// SymbolsInFile resolves `ls <path>`: every symbol declared in path,
// falling back to an on-demand parse (the caller supplies parseFallback,
// so this package does not import internal/parse), then to a
// definition-keyword text scan of that file.
func (r *Router) SymbolsInFile(relPath string, parseFallback func(relPath string) ([]wonktype.Symbol, error)) ([]wonktype.Symbol, error) {
	if r.DB != nil {
		results, err := r.DB.SymbolsByFile(relPath)
		if err != nil {
			return nil, wonkerr.Wrap(wonkerr.QueryFailed, "listing symbols in file", err)
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	if parseFallback != nil {
		if results, err := parseFallback(relPath); err == nil && len(results) > 0 {
			return results, nil
		}
	}
	return r.symbolsInFileGrep(relPath)
}

func (r *Router) symbolsInFileGrep(relPath string) ([]wonktype.Symbol, error) {
	pattern := `(fn|pub\s+fn|def|function|func|class|struct|enum|trait|interface|module)\s+\w+`
	var symbols []wonktype.Symbol
	err := scan.Scan(r.RepoRoot, scan.Options{Pattern: pattern, RegexMode: true, Paths: []string{relPath}}, func(m scan.Match) {
		symbols = append(symbols, wonktype.Symbol{
			Name:      extractSymbolName(m.Content),
			Kind:      wonktype.KindFunction,
			File:      m.File,
			Line:      m.Line,
			Col:       m.Col,
			Signature: strings.TrimSpace(m.Content),
		})
	})
	return symbols, err
}

// --- deps / rdeps ------------------------------------------------------

// Deps resolves `deps <file>`: the file's resolved import targets.
func (r *Router) Deps(relPath string) ([]string, error) {
	if r.DB != nil {
		raw, err := r.DB.Imports(relPath)
		if err != nil && !isNoRows(err) {
			return nil, wonkerr.Wrap(wonkerr.QueryFailed, "querying deps", err)
		}
		if len(raw) > 0 {
			return ResolveImports(relPath, raw), nil
		}
	}
	return r.depsGrep(relPath)
}

func (r *Router) depsGrep(relPath string) ([]string, error) {
	pattern := `(import|from|require|use|#include)\s*[\s("'<]`
	var lines []string
	err := scan.Scan(r.RepoRoot, scan.Options{Pattern: pattern, RegexMode: true, Paths: []string{relPath}}, func(m scan.Match) {
		lines = append(lines, strings.TrimSpace(m.Content))
	})
	return lines, err
}

// Rdeps resolves `rdeps <file>`: every file whose recorded import list
// contains relPath verbatim (raw import strings are compared; they are
// not resolved first), falling back to a text scan for relPath's stem.
func (r *Router) Rdeps(relPath string) ([]string, error) {
	if r.DB != nil {
		results, err := r.DB.ReverseDeps(relPath)
		if err != nil {
			return nil, wonkerr.Wrap(wonkerr.QueryFailed, "querying rdeps", err)
		}
		if len(results) > 0 {
			sort.Strings(results)
			return results, nil
		}
	}
	return r.rdepsGrep(relPath)
}

func (r *Router) rdepsGrep(relPath string) ([]string, error) {
	stem := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	pattern := importGrepPattern(stem)
	seen := map[string]bool{}
	var files []string
	err := scan.Scan(r.RepoRoot, scan.Options{Pattern: pattern, RegexMode: true}, func(m scan.Match) {
		if m.File == relPath || seen[m.File] {
			return
		}
		seen[m.File] = true
		files = append(files, m.File)
	})
	sort.Strings(files)
	return files, err
}

func isNoRows(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no rows")
}

// extractSymbolName recovers the identifier following a definition
// keyword in a matched grep line, e.g. "fn my_func() {" -> "my_func".
func extractSymbolName(content string) string {
	keywords := map[string]bool{
		"fn": true, "def": true, "function": true, "func": true,
		"class": true, "struct": true, "enum": true, "trait": true,
		"interface": true, "module": true,
	}
	tokens := strings.Fields(content)
	for i, tok := range tokens {
		clean := strings.TrimPrefix(strings.TrimPrefix(tok, "pub"), "(crate)")
		if keywords[strings.TrimSpace(clean)] && i+1 < len(tokens) {
			return identifierPrefix(tokens[i+1])
		}
	}
	if len(tokens) > 0 {
		return identifierPrefix(tokens[len(tokens)-1])
	}
	return "unknown"
}

func identifierPrefix(s string) string {
	end := 0
	for end < len(s) {
		c := s[end]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			break
		}
		end++
	}
	return s[:end]
}
