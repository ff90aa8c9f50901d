// Package walk enumerates indexable repository files, respecting
// gitignore hierarchies, a .wonkignore, built-in exclusions, and the
// worktree-boundary rule. Grounded on the teacher's
// internal/merkle/builder.go (directory-walk shape, ignore-pattern
// style) and original_source/src/walker.rs (the exact exclusion lists
// and the hidden/.github allowlist semantics), combined with
// github.com/sabhiram/go-gitignore (already a teacher dependency, used
// for gitignore matching there) rather than builder.go's simplified
// no-wildcard ParseGitignore.
package walk

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
)

// AlwaysExcluded lists directory names skipped regardless of any ignore
// file, per §4.1.
var AlwaysExcluded = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
	".venv":        true,
}

// HiddenAllowlist names hidden entries that are walked despite the
// default hidden-skip rule.
var HiddenAllowlist = map[string]bool{
	".github": true,
}

// Options configures a walk, mirroring §4.1's options record.
type Options struct {
	Root                string
	RespectGitignore    bool
	RespectCustomIgnore bool
	ExtraPatterns       []string
	FollowSymlinks      bool
	Hidden              bool // true disables the default hidden-skip
	MaxFileSize         int64
	RestrictPath        string
}

// DefaultOptions returns sensible defaults for Root.
func DefaultOptions(root string) Options {
	return Options{
		Root:                root,
		RespectGitignore:    true,
		RespectCustomIgnore: true,
		MaxFileSize:         1024 * 1024,
	}
}

// Result is one walked entry.
type Result struct {
	Path      string // absolute
	RelPath   string // relative to Root
	TooLarge  bool
	Size      int64
}

// Walker enumerates files under Options.Root.
type Walker struct {
	opts     Options
	matchers []*ignore.GitIgnore
}

// New builds a Walker, loading .gitignore/.wonkignore files that exist
// at the root (a full per-directory gitignore hierarchy is not modeled;
// the root-level files cover the common case the teacher's main.go
// itself handles via ignore.CompileIgnoreLines).
func New(opts Options) (*Walker, error) {
	w := &Walker{opts: opts}

	if opts.RespectGitignore {
		if m, err := loadIgnoreFile(filepath.Join(opts.Root, ".gitignore")); err == nil && m != nil {
			w.matchers = append(w.matchers, m)
		}
	}
	if opts.RespectCustomIgnore {
		if m, err := loadIgnoreFile(filepath.Join(opts.Root, ".wonkignore")); err == nil && m != nil {
			w.matchers = append(w.matchers, m)
		}
	}
	if len(opts.ExtraPatterns) > 0 {
		if m := ignore.CompileIgnoreLines(opts.ExtraPatterns...); m != nil {
			w.matchers = append(w.matchers, m)
		}
	}
	return w, nil
}

func loadIgnoreFile(path string) (*ignore.GitIgnore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return ignore.CompileIgnoreFile(path)
}

func (w *Walker) ignored(relPath string) bool {
	for _, m := range w.matchers {
		if m.MatchesPath(relPath) {
			return true
		}
	}
	return false
}

// isWorktreeBoundary reports whether dir (not the walk root) contains
// its own .git marker. Deliberately uncached per §4.1's explicit note:
// adding/removing a worktree at runtime must take effect immediately.
func isWorktreeBoundary(dir, root string) bool {
	if dir == root {
		return false
	}
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}

// IsWorktreeBoundary exports the worktree-boundary probe for callers
// outside this package — the daemon's filesystem-event filter applies
// the same uncached ancestor check so a watched nested worktree never
// gets indexed into its parent's database.
func IsWorktreeBoundary(dir, root string) bool {
	return isWorktreeBoundary(dir, root)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Collect walks Options.Root synchronously and returns every indexable
// file path (relative to Root), applying all exclusion rules.
func (w *Walker) Collect() ([]Result, error) {
	var results []Result
	var walkErr error

	var visit func(dir string)
	visit = func(dir string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			walkErr = err
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(dir, name)
			rel, _ := filepath.Rel(w.opts.Root, full)
			rel = filepath.ToSlash(rel)

			if w.opts.RestrictPath != "" && !underRestrictedPath(rel, w.opts.RestrictPath) {
				if entry.IsDir() {
					// Only descend into a directory that could still lead
					// down to RestrictPath; anything else is pruned here.
					if !strings.HasPrefix(w.opts.RestrictPath, rel+"/") {
						continue
					}
				} else {
					// A file outside RestrictPath's subtree is never an
					// ancestor of it, so it's never reachable — drop it.
					continue
				}
			}

			if isHidden(name) && !w.opts.Hidden && !HiddenAllowlist[name] {
				continue
			}

			if entry.IsDir() {
				if AlwaysExcluded[name] {
					continue
				}
				if isWorktreeBoundary(full, w.opts.Root) {
					continue
				}
				if w.ignored(rel + "/") {
					continue
				}
				visit(full)
				continue
			}

			if entry.Type()&os.ModeSymlink != 0 && !w.opts.FollowSymlinks {
				continue
			}

			if w.ignored(rel) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}

			res := Result{Path: full, RelPath: rel, Size: info.Size()}
			if w.opts.MaxFileSize > 0 && info.Size() > w.opts.MaxFileSize {
				res.TooLarge = true
			}
			results = append(results, res)
		}
	}

	visit(w.opts.Root)
	return results, walkErr
}

func underRestrictedPath(rel, restrict string) bool {
	restrict = strings.TrimSuffix(restrict, "/")
	return rel == restrict || strings.HasPrefix(rel, restrict+"/")
}

// CollectParallel fans file-level work across NumCPU workers once paths
// are enumerated, matching §4.1's "expose the stream to downstream
// consumers that may fan work across worker threads" note. The walk
// itself stays single-threaded (directory traversal order must stay
// deterministic for the worktree-boundary check), but callers that want
// to process each Result concurrently can use this helper instead of
// re-implementing the fan-out.
func (w *Walker) CollectParallel(fn func(Result)) error {
	results, err := w.Collect()
	if err != nil {
		return err
	}

	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	jobs := make(chan Result)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				fn(r)
			}
		}()
	}
	for _, r := range results {
		jobs <- r
	}
	close(jobs)
	wg.Wait()
	return nil
}
