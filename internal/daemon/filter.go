package daemon

import (
	"path/filepath"
	"strings"

	"wonk/internal/walk"
)

// ShouldProcess reports whether a filesystem event for path should be
// fed into the incremental pipeline, adapted from watcher.rs's
// should_process: rejects .git internals, any AlwaysExcluded directory
// component, hidden components outside HiddenAllowlist, and anything
// across a nested worktree boundary from root.
func ShouldProcess(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}

	parts := strings.Split(rel, "/")
	dir := root
	for i, part := range parts {
		if part == ".git" {
			return false
		}
		if walk.AlwaysExcluded[part] {
			return false
		}
		if isHiddenComponent(part) && !walk.HiddenAllowlist[part] {
			return false
		}

		isLast := i == len(parts)-1
		next := filepath.Join(dir, part)
		if !isLast {
			// Only directories can be worktree boundaries, and only
			// below root itself — the repo's own .git is expected.
			if walk.IsWorktreeBoundary(next, root) {
				return false
			}
		}
		dir = next
	}

	return true
}

func isHiddenComponent(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
