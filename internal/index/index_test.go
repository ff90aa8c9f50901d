package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"wonk/internal/store"
	"wonk/internal/walk"
)

func newTestBuilder(t *testing.T, root string) *Builder {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return New(root, db, 1024*1024, nil)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFullIndexesGoFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n")

	b := newTestBuilder(t, root)
	stats, err := b.Full(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesScanned != 1 {
		t.Errorf("expected 1 file scanned, got %d", stats.FilesScanned)
	}
	if stats.Symbols == 0 {
		t.Error("expected at least one symbol extracted from main.go")
	}

	syms, err := b.DB.SymbolsByExactName("main")
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 1 {
		t.Fatalf("expected 1 symbol named main, got %d", len(syms))
	}
}

func TestIncrementalSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n\nfunc main() {}\n")

	b := newTestBuilder(t, root)
	ctx := context.Background()
	if _, err := b.Full(ctx); err != nil {
		t.Fatal(err)
	}

	stats, err := b.Incremental(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesChanged != 0 {
		t.Errorf("expected no changed files on unchanged rerun, got %d", stats.FilesChanged)
	}
}

func TestIncrementalPrunesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.go")
	writeFile(t, path, "package main\n\nfunc Gone() {}\n")

	b := newTestBuilder(t, root)
	ctx := context.Background()
	if _, err := b.Full(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	stats, err := b.Incremental(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesRemoved != 1 {
		t.Errorf("expected 1 removed file, got %d", stats.FilesRemoved)
	}
	if _, ok := b.DB.FileHash("gone.go"); ok {
		t.Error("gone.go should no longer be in the index")
	}
}

func TestTooLargeFileStillGetsFilesRow(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.txt"), string(make([]byte, 200)))

	b := newTestBuilder(t, root)
	b.MaxFileSize = 10
	ctx := context.Background()

	walkOpts := walk.DefaultOptions(root)
	walkOpts.MaxFileSize = 10
	w, err := walk.New(walkOpts)
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}

	stats, err := b.indexFiles(ctx, results)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesSkipped != 1 {
		t.Errorf("expected 1 skipped file, got %d", stats.FilesSkipped)
	}

	hash, ok := b.DB.FileHash("big.txt")
	if !ok {
		t.Fatal("expected a files row for the too-large file, got none")
	}
	if hash != "" {
		t.Errorf("expected empty hash for unhashed too-large file, got %q", hash)
	}

	syms, err := b.DB.SymbolsByExactName("big")
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 0 {
		t.Errorf("expected no symbols for a too-large file, got %v", syms)
	}

	// A rerun should be a no-op, not attempt to rewrite the row every time.
	stats2, err := b.indexFiles(ctx, results)
	if err != nil {
		t.Fatal(err)
	}
	if stats2.FilesSkipped != 1 {
		t.Errorf("expected 1 skipped file on rerun, got %d", stats2.FilesSkipped)
	}
}

func TestIncrementalPathsReindexesOnlyGivenFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package main\n\nfunc A() {}\n")
	writeFile(t, filepath.Join(root, "b.go"), "package main\n\nfunc B() {}\n")

	b := newTestBuilder(t, root)
	ctx := context.Background()
	if _, err := b.Full(ctx); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "a.go"), "package main\n\nfunc A() {}\nfunc A2() {}\n")

	stats, err := b.IncrementalPaths(ctx, []string{"a.go"})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesChanged != 1 {
		t.Errorf("expected 1 changed file, got %d", stats.FilesChanged)
	}

	syms, err := b.DB.SymbolsByExactName("A2")
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 1 {
		t.Error("expected A2 to be picked up by the targeted reindex")
	}
}
