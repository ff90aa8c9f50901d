// Package scan implements the line-oriented text scanner behind the
// `search` command: literal or regex matching over the files the
// walker would enumerate, honoring the same ignore discipline. It is
// the primary backend for `search` and the fallback backend for
// `sym`, `ref`, `sig`, `deps`, and `rdeps` when the structural index
// misses, per §4.5/§4.6.
package scan

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"strings"

	"wonk/internal/walk"
)

// Match is one (file, line, column, content) hit.
type Match struct {
	File    string // repo-relative
	Line    int    // 1-indexed
	Col     int    // 0-indexed byte offset of the match start
	Content string
}

// Options configures a scan, mirroring §4.5's options table.
type Options struct {
	Pattern            string
	RegexMode          bool
	CaseInsensitive    bool
	Paths              []string // restrict to these subpaths; empty means whole repo
	AdditionalPatterns []string // extra glob heuristics for fallback callers, not matched here
	MaxFileSize        int64
}

// matcher abstracts literal-substring vs. compiled-regex matching so
// Scan's per-line loop doesn't branch on RegexMode itself.
type matcher interface {
	// find returns the byte offset of the first match in line, or -1.
	find(line string) int
}

type literalMatcher struct {
	needle string
	fold   bool
}

func (m literalMatcher) find(line string) int {
	if m.fold {
		return strings.Index(strings.ToLower(line), m.needle)
	}
	return strings.Index(line, m.needle)
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) find(line string) int {
	loc := m.re.FindStringIndex(line)
	if loc == nil {
		return -1
	}
	return loc[0]
}

func newMatcher(opts Options) (matcher, error) {
	if opts.RegexMode {
		pattern := opts.Pattern
		if opts.CaseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		return regexMatcher{re: re}, nil
	}
	needle := opts.Pattern
	if opts.CaseInsensitive {
		needle = strings.ToLower(needle)
	}
	return literalMatcher{needle: needle, fold: opts.CaseInsensitive}, nil
}

// Scan walks root per the given Options and calls fn for every match,
// in the order the underlying walker emits files (not globally
// ordered — callers that need a stable result order sort afterward,
// as the smart ranker does).
func Scan(root string, opts Options, fn func(Match)) error {
	m, err := newMatcher(opts)
	if err != nil {
		return err
	}

	walkOpts := walk.DefaultOptions(root)
	if opts.MaxFileSize > 0 {
		walkOpts.MaxFileSize = opts.MaxFileSize
	}
	if len(opts.Paths) == 1 {
		walkOpts.RestrictPath = opts.Paths[0]
	}

	w, err := walk.New(walkOpts)
	if err != nil {
		return err
	}

	results, err := w.Collect()
	if err != nil {
		return err
	}

	for _, r := range results {
		if len(opts.Paths) > 0 && !underAnyPath(r.RelPath, opts.Paths) {
			continue
		}
		if err := scanFile(r.Path, r.RelPath, m, fn); err != nil {
			continue // unreadable file: skip, matching the walker's own tolerance of transient I/O errors
		}
	}
	return nil
}

func scanFile(absPath, relPath string, m matcher, fn func(Match)) error {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil // skip binary files
	}

	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if col := m.find(text); col >= 0 {
			fn(Match{File: relPath, Line: line, Col: col, Content: text})
		}
	}
	return sc.Err()
}

func underAnyPath(relPath string, paths []string) bool {
	for _, p := range paths {
		if underRestrictedPath(relPath, p) {
			return true
		}
	}
	return false
}

// underRestrictedPath mirrors walk's own prefix semantics: relPath
// must equal p or be nested under it.
func underRestrictedPath(relPath, p string) bool {
	p = strings.TrimRight(p, "/")
	return relPath == p || strings.HasPrefix(relPath, p+"/")
}
