package merkle

import (
	"os"
	"path/filepath"
	"sort"

	"wonk/internal/walk"
)

// Builder walks a worktree and produces a Tree: a single root hash the
// daemon can compare against the last snapshot it saved, to tell in
// one cheap pass whether anything changed while it wasn't watching
// (cold start, or a debounced batch fsnotify never delivered) before
// paying for the real walk-and-hash-and-parse pipeline.
//
// It shares walk's exclusion rules rather than keeping a separate
// ignore list, so a path this tree skips is exactly a path the
// indexer would also have skipped.
type Builder struct {
	// IncludeHidden includes dotfiles other than walk.HiddenAllowlist.
	IncludeHidden bool
}

// NewBuilder creates a Builder using the daemon's default exclusions.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces a Tree rooted at repoPath.
func (b *Builder) Build(repoPath string) (*Tree, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}

	root, fileCount, err := b.buildNode(absPath, "")
	if err != nil {
		return nil, err
	}

	return &Tree{
		Root:      root,
		RepoPath:  absPath,
		FileCount: fileCount,
	}, nil
}

func (b *Builder) buildNode(basePath, relPath string) (*Node, int, error) {
	fullPath := filepath.Join(basePath, relPath)

	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, 0, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, 0, nil
	}

	node := &Node{
		Path:  relPath,
		IsDir: info.IsDir(),
		Size:  info.Size(),
	}

	if !info.IsDir() {
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, 0, err
		}
		node.ComputeHash(content)
		return node, 1, nil
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, 0, err
	}

	fileCount := 0
	for _, entry := range entries {
		name := entry.Name()
		if b.shouldIgnore(name) {
			continue
		}

		childPath := filepath.Join(relPath, name)
		child, count, err := b.buildNode(basePath, childPath)
		if err != nil {
			continue // an unreadable entry doesn't sink the whole snapshot
		}
		if child == nil {
			continue // symlink
		}
		if child.IsDir && len(child.Children) == 0 {
			continue
		}

		node.Children = append(node.Children, child)
		fileCount += count
	}

	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Path < node.Children[j].Path
	})
	node.ComputeHash(nil)

	return node, fileCount, nil
}

func (b *Builder) shouldIgnore(name string) bool {
	if walk.AlwaysExcluded[name] {
		return true
	}
	if len(name) > 0 && name[0] == '.' {
		if b.IncludeHidden || walk.HiddenAllowlist[name] {
			return false
		}
		return true
	}
	return false
}
