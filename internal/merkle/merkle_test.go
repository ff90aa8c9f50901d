package merkle

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestRepo creates a small tree:
//
//	dir/
//	  file1.txt
//	  file2.txt
//	  subdir/
//	    file3.txt
func writeTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "file1.txt"), "content1")
	mustWrite(t, filepath.Join(dir, "file2.txt"), "content2")

	subdir := filepath.Join(dir, "subdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(subdir, "file3.txt"), "content3")

	return dir
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNodeComputeHashFile(t *testing.T) {
	node := &Node{Path: "test.txt"}
	node.ComputeHash([]byte("hello world"))

	const expected = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if node.Hash != expected {
		t.Errorf("expected hash %s, got %s", expected, node.Hash)
	}
}

func TestNodeComputeHashDeterministic(t *testing.T) {
	content := []byte("test content")

	a := &Node{Path: "test.txt"}
	a.ComputeHash(content)
	b := &Node{Path: "test.txt"}
	b.ComputeHash(content)

	if a.Hash != b.Hash {
		t.Errorf("hashes should be deterministic: %s != %s", a.Hash, b.Hash)
	}
}

func TestNodeComputeHashDirRollsUpChildren(t *testing.T) {
	child1 := &Node{Path: "a.txt", Hash: "hash1"}
	child2 := &Node{Path: "b.txt", Hash: "hash2"}
	node := &Node{Path: "dir", IsDir: true, Children: []*Node{child1, child2}}
	node.ComputeHash(nil)

	if node.Hash == "" {
		t.Error("directory hash should not be empty")
	}

	before := node.Hash
	child1.Hash = "changed"
	node.ComputeHash(nil)
	if node.Hash == before {
		t.Error("directory hash should change when a child's hash changes")
	}
}

func TestTreeRootHashNil(t *testing.T) {
	var tree *Tree
	if tree.RootHash() != "" {
		t.Error("nil tree should return empty hash")
	}
}

func TestTreeIsEmpty(t *testing.T) {
	if !(&Tree{}).IsEmpty() {
		t.Error("tree with no root should be empty")
	}
	if (&Tree{Root: &Node{}, FileCount: 5}).IsEmpty() {
		t.Error("tree with files should not be empty")
	}
}

func TestBuilderBuild(t *testing.T) {
	dir := writeTestRepo(t)

	tree, err := NewBuilder().Build(dir)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if tree.FileCount != 3 {
		t.Errorf("expected 3 files, got %d", tree.FileCount)
	}
	if tree.Root == nil || tree.Root.Hash == "" {
		t.Fatal("expected a non-empty root hash")
	}
}

func TestBuilderDeterministicHash(t *testing.T) {
	dir := writeTestRepo(t)
	builder := NewBuilder()

	tree1, err := builder.Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	tree2, err := builder.Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if tree1.RootHash() != tree2.RootHash() {
		t.Errorf("hashes should be deterministic: %s != %s", tree1.RootHash(), tree2.RootHash())
	}
}

func TestBuilderIgnoresAlwaysExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "app.js"), "code")

	nodeModules := filepath.Join(dir, "node_modules")
	if err := os.MkdirAll(nodeModules, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(nodeModules, "dep.js"), "dependency")

	tree, err := NewBuilder().Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if tree.FileCount != 1 {
		t.Errorf("expected node_modules to be excluded, got %d files", tree.FileCount)
	}
}

func TestBuilderHiddenFilesDefaultExcluded(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "visible.txt"), "visible")
	mustWrite(t, filepath.Join(dir, ".hidden"), "hidden")

	tree, err := NewBuilder().Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if tree.FileCount != 1 {
		t.Errorf("expected hidden file excluded by default, got %d files", tree.FileCount)
	}
}

func TestBuilderIncludeHidden(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "visible.txt"), "visible")
	mustWrite(t, filepath.Join(dir, ".hidden"), "hidden")

	builder := NewBuilder()
	builder.IncludeHidden = true

	tree, err := builder.Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if tree.FileCount != 2 {
		t.Errorf("expected 2 files with IncludeHidden, got %d", tree.FileCount)
	}
}

func TestBuilderSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.txt")
	mustWrite(t, real, "content")
	if err := os.Symlink(real, filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	tree, err := NewBuilder().Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if tree.FileCount != 1 {
		t.Errorf("expected symlink skipped, got %d files", tree.FileCount)
	}
}

func TestBuilderEmptyDirectoriesDropped(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	tree, err := NewBuilder().Build(dir)
	if err != nil {
		t.Fatal(err)
	}
	if tree.FileCount != 0 {
		t.Errorf("expected 0 files, got %d", tree.FileCount)
	}
}

func TestDiffNilOldTree(t *testing.T) {
	tree, _ := NewBuilder().Build(writeTestRepo(t))

	changes := Diff(nil, tree)
	if len(changes.Added) != 3 {
		t.Errorf("expected 3 added files, got %d", len(changes.Added))
	}
	if changes.IsEmpty() {
		t.Error("expected non-empty changes")
	}
}

func TestDiffNilNewTree(t *testing.T) {
	tree, _ := NewBuilder().Build(writeTestRepo(t))

	changes := Diff(tree, nil)
	if len(changes.Deleted) != 3 {
		t.Errorf("expected 3 deleted files, got %d", len(changes.Deleted))
	}
}

func TestDiffNoChanges(t *testing.T) {
	dir := writeTestRepo(t)
	builder := NewBuilder()
	tree1, _ := builder.Build(dir)
	tree2, _ := builder.Build(dir)

	changes := Diff(tree1, tree2)
	if !changes.IsEmpty() {
		t.Errorf("expected no changes, got added=%d modified=%d deleted=%d",
			len(changes.Added), len(changes.Modified), len(changes.Deleted))
	}
}

func TestDiffMixedChanges(t *testing.T) {
	dir := writeTestRepo(t)
	builder := NewBuilder()
	tree1, _ := builder.Build(dir)

	mustWrite(t, filepath.Join(dir, "new.txt"), "new")
	mustWrite(t, filepath.Join(dir, "file1.txt"), "modified")
	if err := os.Remove(filepath.Join(dir, "file2.txt")); err != nil {
		t.Fatal(err)
	}

	tree2, _ := builder.Build(dir)
	changes := Diff(tree1, tree2)

	if len(changes.Added) != 1 || changes.Added[0] != "new.txt" {
		t.Errorf("expected [new.txt] added, got %v", changes.Added)
	}
	if len(changes.Modified) != 1 || changes.Modified[0] != "file1.txt" {
		t.Errorf("expected [file1.txt] modified, got %v", changes.Modified)
	}
	if len(changes.Deleted) != 1 || changes.Deleted[0] != "file2.txt" {
		t.Errorf("expected [file2.txt] deleted, got %v", changes.Deleted)
	}
	if changes.Total() != 3 {
		t.Errorf("expected 3 total changes, got %d", changes.Total())
	}
}

func TestChangesAllChanged(t *testing.T) {
	changes := &Changes{
		Added:    []string{"c.txt", "a.txt"},
		Modified: []string{"b.txt"},
		Deleted:  []string{"d.txt"},
	}

	all := changes.AllChanged()
	if len(all) != 3 || all[0] != "a.txt" || all[1] != "b.txt" || all[2] != "c.txt" {
		t.Errorf("expected sorted [a.txt b.txt c.txt], got %v", all)
	}
}

func TestDiffWithEarlyExit(t *testing.T) {
	dir := writeTestRepo(t)
	builder := NewBuilder()
	tree1, _ := builder.Build(dir)
	tree2, _ := builder.Build(dir)

	if DiffWithEarlyExit(tree1, tree2) {
		t.Error("expected no changes")
	}

	mustWrite(t, filepath.Join(dir, "file1.txt"), "modified")
	tree3, _ := builder.Build(dir)
	if !DiffWithEarlyExit(tree1, tree3) {
		t.Error("expected changes to be detected")
	}
}

func TestDiffWithEarlyExitNilTrees(t *testing.T) {
	tree := &Tree{Root: &Node{Hash: "abc"}}

	if !DiffWithEarlyExit(nil, tree) || !DiffWithEarlyExit(tree, nil) {
		t.Error("either side nil with the other non-empty should report changes")
	}
	if DiffWithEarlyExit(nil, nil) {
		t.Error("nil vs nil should not report changes")
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	tree := &Tree{
		Root: &Node{
			Hash:  "abc123",
			IsDir: true,
			Children: []*Node{
				{Path: "file.txt", Hash: "def456", Size: 100},
			},
		},
		RepoPath:  "/test/repo",
		FileCount: 1,
	}

	if err := store.Save(tree); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RootHash() != tree.RootHash() {
		t.Errorf("root hash mismatch: %s != %s", loaded.RootHash(), tree.RootHash())
	}
	if loaded.FileCount != tree.FileCount {
		t.Errorf("file count mismatch: %d != %d", loaded.FileCount, tree.FileCount)
	}
}

func TestStoreLoadNonExistentIsNotAnError(t *testing.T) {
	store := NewStore(t.TempDir())

	tree, err := store.Load()
	if err != nil {
		t.Fatalf("Load should not error for a missing snapshot: %v", err)
	}
	if tree != nil {
		t.Error("Load should return nil for a missing snapshot")
	}
}

func TestStoreSaveNilTree(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Save(nil); err == nil {
		t.Error("saving nil tree should error")
	}
}

func TestFullResyncWorkflow(t *testing.T) {
	dir := writeTestRepo(t)
	snapshotDir := filepath.Join(dir, ".wonk-snapshot")
	store := NewStore(snapshotDir)
	builder := NewBuilder()

	tree1, _ := builder.Build(dir)
	firstDiff := Diff(nil, tree1)
	if len(firstDiff.Added) != 3 {
		t.Errorf("first build: expected 3 added, got %d", len(firstDiff.Added))
	}
	if err := store.Save(tree1); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.RootHash() != tree1.RootHash() {
		t.Error("loaded snapshot hash mismatch")
	}

	mustWrite(t, filepath.Join(dir, "file1.txt"), "modified")
	mustWrite(t, filepath.Join(dir, "new.txt"), "new file")
	if err := os.Remove(filepath.Join(dir, "file2.txt")); err != nil {
		t.Fatal(err)
	}

	tree2, _ := builder.Build(dir)
	if !DiffWithEarlyExit(loaded, tree2) {
		t.Fatal("expected drift to be detected")
	}
	changes := Diff(loaded, tree2)
	if len(changes.Added) != 1 || changes.Added[0] != "new.txt" {
		t.Errorf("expected new.txt added, got %v", changes.Added)
	}
	if len(changes.Modified) != 1 || changes.Modified[0] != "file1.txt" {
		t.Errorf("expected file1.txt modified, got %v", changes.Modified)
	}
	if len(changes.Deleted) != 1 || changes.Deleted[0] != "file2.txt" {
		t.Errorf("expected file2.txt deleted, got %v", changes.Deleted)
	}
}
