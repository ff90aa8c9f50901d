package merkle

// Tree is one worktree snapshot: a root hash standing in for "the
// entire repository looks like this." Two snapshots with equal root
// hashes mean nothing changed; that single comparison is what lets the
// daemon skip a full walk-and-parse on a quiet repo.
type Tree struct {
	Root      *Node  `json:"root"`
	RepoPath  string `json:"repo_path"`
	FileCount int    `json:"file_count"`
}

// RootHash returns the tree's root hash, or "" for a nil/empty tree.
func (t *Tree) RootHash() string {
	if t == nil || t.Root == nil {
		return ""
	}
	return t.Root.Hash
}

// IsEmpty reports whether the tree has no files.
func (t *Tree) IsEmpty() bool {
	return t == nil || t.Root == nil || t.FileCount == 0
}
