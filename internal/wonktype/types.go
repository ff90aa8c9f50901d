// Package wonktype holds the data types shared across the indexing
// pipeline, the persistence layer, and the query router.
package wonktype

import "fmt"

// SymbolKind is the kind of a named declaration captured at index time.
type SymbolKind string

const (
	KindFunction      SymbolKind = "function"
	KindMethod        SymbolKind = "method"
	KindClass         SymbolKind = "class"
	KindStruct        SymbolKind = "struct"
	KindInterface     SymbolKind = "interface"
	KindEnum          SymbolKind = "enum"
	KindTrait         SymbolKind = "trait"
	KindTypeAlias     SymbolKind = "type_alias"
	KindConstant      SymbolKind = "constant"
	KindVariable      SymbolKind = "variable"
	KindModule        SymbolKind = "module"
	KindExportedAlias SymbolKind = "exported_alias"
)

// Symbol is a named declaration extracted from a parsed syntax tree.
type Symbol struct {
	ID        int64
	Name      string
	Kind      SymbolKind
	File      string // repo-relative
	Line      int    // 1-indexed
	Col       int    // 0-indexed
	EndLine   int    // 1-indexed; 0 means unknown
	Scope     string // nearest enclosing symbol name, "" if none
	Signature string
	Language  string
}

// Reference is a non-defining name occurrence.
type Reference struct {
	ID      int64
	Name    string
	File    string
	Line    int
	Col     int
	Context string
}

// FileRecord is per-path metadata tracked by the persistence layer.
type FileRecord struct {
	Path         string
	Language     string
	Hash         string // xxh3, hex-encoded
	LastIndexed  int64  // unix seconds
	LineCount    int
	SymbolsCount int
	Imports      []string
}

// ImportEdge is a directed importer -> imported edge resolved from a
// file's import list.
type ImportEdge struct {
	From string
	To   string
}

// DaemonStatus mirrors the daemon_status key/value table.
type DaemonStatus struct {
	PID         int
	RunID       string
	State       string // "running" | "shutting-down"
	UptimeStart int64
	UpdatedAt   int64
	Queued      int
	LastError   string
}

func (s SymbolKind) String() string { return string(s) }

// ParseKind validates a raw kind string against the known set, used by
// the `sym --kind` filter.
func ParseKind(s string) (SymbolKind, error) {
	switch SymbolKind(s) {
	case KindFunction, KindMethod, KindClass, KindStruct, KindInterface,
		KindEnum, KindTrait, KindTypeAlias, KindConstant, KindVariable,
		KindModule, KindExportedAlias:
		return SymbolKind(s), nil
	default:
		return "", fmt.Errorf("unknown symbol kind %q", s)
	}
}
