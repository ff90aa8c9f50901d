package rank

import (
	"regexp"
	"strings"

	"wonk/internal/wonktype"
)

// Category is the bucket a classified result line falls into.
type Category int

const (
	CategoryDefinition Category = iota
	CategoryCallSite
	CategoryImport
	CategoryOther
	CategoryComment
	CategoryTest
)

// String renders the category's short lowercase name. Marker lines
// come from MarkerLine, not from String.
func (c Category) String() string {
	switch c {
	case CategoryDefinition:
		return "definition"
	case CategoryCallSite:
		return "call_site"
	case CategoryImport:
		return "import"
	case CategoryComment:
		return "comment"
	case CategoryTest:
		return "test"
	default:
		return "other"
	}
}

// tierOrder is the fixed output ordering across categories: Definition
// -> CallSite -> Import -> Other -> Comment -> Test. This differs from
// the classification priority chain in Classify, which checks Comment
// and Test before falling back to Other — the chain decides a row's
// category, while this table decides where that category sorts.
var tierOrder = map[Category]int{
	CategoryDefinition: 0,
	CategoryCallSite:   1,
	CategoryImport:     2,
	CategoryOther:      3,
	CategoryComment:    4,
	CategoryTest:       5,
}

// TierRank returns c's position in the fixed output tier sequence.
func TierRank(c Category) int { return tierOrder[c] }

// importRe matches import/require/use/include statements across the
// languages Wonk indexes, after optional leading whitespace.
var importRe = regexp.MustCompile(`^\s*(?:use\s|import\s|from\s|#include\s*[<"]|require\s*[('"])`)

// IsImportLine reports whether line looks like an import/require/use
// statement.
func IsImportLine(line string) bool {
	return importRe.MatchString(line)
}

// IsCommentLine reports whether line is, heuristically, a comment-only
// line. A line with code followed by a trailing comment is not
// classified as a comment.
func IsCommentLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#include") {
		return false
	}
	return strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "*/") ||
		strings.HasPrefix(trimmed, "#")
}

// IsTestFile reports whether path matches test directory/filename
// heuristics: test/tests/__tests__ path components, or a
// *_test.*/*.test.*/*.spec.* filename.
func IsTestFile(path string) bool {
	for _, part := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if part == "test" || part == "tests" || part == "__tests__" {
			return true
		}
	}

	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	stem := base
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if strings.HasSuffix(stem, "_test") {
		return true
	}
	return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
}

// Lookup provides O(1) is-this-line-a-definition / is-this-line-a-reference
// checks against the index, preloaded for the set of files actually
// present in a result batch.
type Lookup struct {
	definitions map[string]map[int]bool
	references  map[string]map[int]bool
}

// NewLookup builds a Lookup from symbols and references already
// fetched for the files in a result batch (the caller queries the
// store once per batch, matching ranker.rs's IndexLookup::load).
func NewLookup(symbols []wonktype.Symbol, refs []wonktype.Reference) *Lookup {
	l := &Lookup{definitions: map[string]map[int]bool{}, references: map[string]map[int]bool{}}
	for _, s := range symbols {
		if l.definitions[s.File] == nil {
			l.definitions[s.File] = map[int]bool{}
		}
		l.definitions[s.File][s.Line] = true
	}
	for _, r := range refs {
		if l.references[r.File] == nil {
			l.references[r.File] = map[int]bool{}
		}
		l.references[r.File][r.Line] = true
	}
	return l
}

func (l *Lookup) isDefinition(file string, line int) bool {
	return l != nil && l.definitions[file] != nil && l.definitions[file][line]
}

func (l *Lookup) isReference(file string, line int) bool {
	return l != nil && l.references[file] != nil && l.references[file][line]
}

// Result is one line to classify: a file/line/content triple, mirroring
// the text scanner's and structural index's shared output shape. Name
// is the matched symbol/identifier when known (empty for plain text
// scanner hits), used by re-export deduplication.
type Result struct {
	File    string
	Line    int
	Content string
	Name    string
}

// Classified pairs a Result with its assigned Category.
type Classified struct {
	Result   Result
	Category Category
}

// Classify assigns each result a category by checking, in priority
// order: Definition > CallSite > Import > Comment > Test > Other.
// Import is checked before Comment so #include lines aren't mistaken
// for comments. lookup may be nil, in which case Definition/CallSite
// classification is skipped and those rows fall through.
func Classify(results []Result, lookup *Lookup) []Classified {
	out := make([]Classified, len(results))
	for i, r := range results {
		out[i] = Classified{Result: r, Category: classifyOne(r, lookup)}
	}
	return out
}

func classifyOne(r Result, lookup *Lookup) Category {
	if lookup.isDefinition(r.File, r.Line) {
		return CategoryDefinition
	}
	if lookup.isReference(r.File, r.Line) {
		return CategoryCallSite
	}
	if IsImportLine(r.Content) {
		return CategoryImport
	}
	if IsCommentLine(r.Content) {
		return CategoryComment
	}
	if IsTestFile(r.File) {
		return CategoryTest
	}
	return CategoryOther
}
