package output

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"wonk/internal/rank"
)

// SearchRecord is one text-search or reference hit, per §4.8's record
// shape for search/reference rows.
type SearchRecord struct {
	File       string `json:"file"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
	Content    string `json:"content"`
	Annotation string `json:"annotation,omitempty"`
}

// SymbolRecord is a symbol definition row.
type SymbolRecord struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Col       int    `json:"col"`
	EndLine   int    `json:"end_line,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Signature string `json:"signature"`
	Language  string `json:"language"`
}

// RefRecord is a reference (usage site) row.
type RefRecord struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Context string `json:"context"`
}

// SignatureRecord is a function/method signature row.
type SignatureRecord struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Signature string `json:"signature"`
	Language  string `json:"language"`
}

// LsSymbolRecord is a `ls --tree` entry, with Indent skipped from JSON
// since it's a text-mode rendering detail.
type LsSymbolRecord struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Indent int    `json:"-"`
	Scope  string `json:"scope,omitempty"`
}

// DepRecord is a `deps`/`rdeps` edge.
type DepRecord struct {
	File      string `json:"file"`
	DependsOn string `json:"depends_on"`
}

// TruncationMeta is the trailing structured-mode record emitted when a
// token budget truncates output.
type TruncationMeta struct {
	TruncatedCount int `json:"truncated_count"`
	BudgetTokens   int `json:"budget_tokens"`
	UsedTokens     int `json:"used_tokens"`
}

// ErrorRecord is a structured-mode error emitted mid-stream rather than
// aborting it, per §7's "structured-output mode always emits errors as
// records in the primary stream".
type ErrorRecord struct {
	Error string `json:"error"`
}

// Formatter renders result records to an io.Writer in grep-compatible
// text (default) or NDJSON (--json), applying an optional token budget
// and match-highlighting.
type Formatter struct {
	w         io.Writer
	JSON      bool
	Color     bool
	highlight *regexp.Regexp
	budget    *rank.Budget
}

// New builds a Formatter writing to w.
func New(w io.Writer, jsonMode, color bool) *Formatter {
	return &Formatter{w: w, JSON: jsonMode, Color: color}
}

// SetHighlight compiles pattern (literal unless isRegex) for inline
// match highlighting in grep-mode search results.
func (f *Formatter) SetHighlight(pattern string, isRegex, ignoreCase bool) {
	p := pattern
	if !isRegex {
		p = regexp.QuoteMeta(p)
	}
	if ignoreCase {
		p = "(?i)" + p
	}
	re, err := regexp.Compile(p)
	if err == nil {
		f.highlight = re
	}
}

// SetBudget installs a token budget; subsequent Format* calls report
// Skipped once it's exhausted instead of writing.
func (f *Formatter) SetBudget(limit int) {
	f.budget = rank.NewBudget(limit)
}

// BudgetUsed returns tokens consumed so far, 0 if no budget is active.
func (f *Formatter) BudgetUsed() int {
	if f.budget == nil {
		return 0
	}
	return f.budget.Used()
}

// BudgetStatus reports whether a Format* call actually wrote its
// record or was skipped for exceeding the token budget.
type BudgetStatus int

const (
	Written BudgetStatus = iota
	Skipped
)

// checkBudget renders text, consults the budget, and returns whether
// the caller should proceed to write it.
func (f *Formatter) checkBudget(text string) BudgetStatus {
	if f.budget == nil {
		return Written
	}
	if f.budget.TryConsume(text) {
		return Written
	}
	return Skipped
}

func (f *Formatter) writeFile(path string) {
	if f.Color {
		fmt.Fprintf(f.w, "%s%s%s", File, path, Reset)
	} else {
		fmt.Fprint(f.w, path)
	}
}

func (f *Formatter) writeLineNo(line int) {
	if f.Color {
		fmt.Fprintf(f.w, "%s%d%s", LineNo, line, Reset)
	} else {
		fmt.Fprintf(f.w, "%d", line)
	}
}

func (f *Formatter) writeSep() {
	if f.Color {
		fmt.Fprintf(f.w, "%s:%s", Sep, Reset)
	} else {
		fmt.Fprint(f.w, ":")
	}
}

func (f *Formatter) writeContent(content string) {
	if f.Color && f.highlight != nil {
		writeHighlighted(f.w, content, f.highlight)
		return
	}
	fmt.Fprint(f.w, content)
}

func writeHighlighted(w io.Writer, content string, re *regexp.Regexp) {
	lastEnd := 0
	for _, loc := range re.FindAllStringIndex(content, -1) {
		fmt.Fprint(w, content[lastEnd:loc[0]])
		fmt.Fprintf(w, "%s%s%s", Match, content[loc[0]:loc[1]], Reset)
		lastEnd = loc[1]
	}
	fmt.Fprint(w, content[lastEnd:])
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// FormatSearchResult renders one search/reference hit: grep mode emits
// `file:line:content` (plus a trailing annotation), JSON mode emits a
// SearchRecord line.
func (f *Formatter) FormatSearchResult(r SearchRecord) (BudgetStatus, error) {
	text := renderPlain(func(buf io.Writer) {
		fmt.Fprintf(buf, "%s:%d:%s", r.File, r.Line, r.Content)
	})
	if f.checkBudget(text) == Skipped {
		return Skipped, nil
	}

	if f.JSON {
		return Written, writeJSON(f.w, r)
	}
	f.writeFile(r.File)
	f.writeSep()
	f.writeLineNo(r.Line)
	f.writeSep()
	f.writeContent(r.Content)
	if r.Annotation != "" {
		fmt.Fprintf(f.w, "  %s", r.Annotation)
	}
	fmt.Fprintln(f.w)
	return Written, nil
}

// FormatSymbol renders one symbol definition row.
func (f *Formatter) FormatSymbol(s SymbolRecord) (BudgetStatus, error) {
	if f.checkBudget(s.Signature) == Skipped {
		return Skipped, nil
	}
	if f.JSON {
		return Written, writeJSON(f.w, s)
	}
	f.writeFile(s.File)
	f.writeSep()
	f.writeLineNo(s.Line)
	f.writeSep()
	fmt.Fprintf(f.w, "  %s\n", s.Signature)
	return Written, nil
}

// FormatReference renders one reference (usage site) row.
func (f *Formatter) FormatReference(r RefRecord) (BudgetStatus, error) {
	if f.checkBudget(r.Context) == Skipped {
		return Skipped, nil
	}
	if f.JSON {
		return Written, writeJSON(f.w, r)
	}
	f.writeFile(r.File)
	f.writeSep()
	f.writeLineNo(r.Line)
	f.writeSep()
	fmt.Fprintln(f.w, r.Context)
	return Written, nil
}

// FormatSignature renders one function/method signature row.
func (f *Formatter) FormatSignature(s SignatureRecord) (BudgetStatus, error) {
	if f.checkBudget(s.Signature) == Skipped {
		return Skipped, nil
	}
	if f.JSON {
		return Written, writeJSON(f.w, s)
	}
	f.writeFile(s.File)
	f.writeSep()
	f.writeLineNo(s.Line)
	f.writeSep()
	fmt.Fprintf(f.w, "  %s\n", s.Signature)
	return Written, nil
}

// FormatLsSymbol renders one `ls --tree` entry: grep mode indents by
// Indent+1 double-spaces before "kind name".
func (f *Formatter) FormatLsSymbol(e LsSymbolRecord) (BudgetStatus, error) {
	text := renderPlain(func(buf io.Writer) {
		fmt.Fprintf(buf, "%s %s", e.Kind, e.Name)
	})
	if f.checkBudget(text) == Skipped {
		return Skipped, nil
	}
	if f.JSON {
		return Written, writeJSON(f.w, e)
	}
	f.writeFile(e.File)
	f.writeSep()
	f.writeLineNo(e.Line)
	f.writeSep()
	for i := 0; i < e.Indent+1; i++ {
		fmt.Fprint(f.w, "  ")
	}
	fmt.Fprintf(f.w, "%s %s\n", e.Kind, e.Name)
	return Written, nil
}

// FormatDep renders one `deps`/`rdeps` edge.
func (f *Formatter) FormatDep(d DepRecord) (BudgetStatus, error) {
	if f.checkBudget(d.File+d.DependsOn) == Skipped {
		return Skipped, nil
	}
	if f.JSON {
		return Written, writeJSON(f.w, d)
	}
	f.writeFile(d.File)
	fmt.Fprint(f.w, " -> ")
	f.writeFile(d.DependsOn)
	fmt.Fprintln(f.w)
	return Written, nil
}

// FormatTruncationMeta emits the structured-mode trailing truncation
// record (no-op in grep mode; the caller uses PrintBudgetSummary there).
func (f *Formatter) FormatTruncationMeta(m TruncationMeta) error {
	if !f.JSON {
		return nil
	}
	return writeJSON(f.w, m)
}

// FormatError emits an error mid-stream as a structured record (JSON
// mode) or nothing (grep mode, where PrintError on stderr is used
// instead).
func (f *Formatter) FormatError(msg string) error {
	if !f.JSON {
		return nil
	}
	return writeJSON(f.w, ErrorRecord{Error: msg})
}

func renderPlain(render func(io.Writer)) string {
	var buf strings.Builder
	render(&buf)
	return buf.String()
}
