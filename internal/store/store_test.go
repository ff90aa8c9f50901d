package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"wonk/internal/wonktype"
)

func TestOpenCreatesSchema(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatal(err)
		}
		tables = append(tables, name)
	}

	want := []string{"symbols", "references", "files", "daemon_status"}
	for _, w := range want {
		found := false
		for _, tbl := range tables {
			if tbl == w {
				found = true
			}
		}
		if !found {
			t.Errorf("missing table %q, have %v", w, tables)
		}
	}
}

func TestOpenIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	db1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	db1.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	db2.Close()
}

func TestOpenExistingMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenExisting(filepath.Join(dir, "nope.db"))
	if err == nil {
		t.Fatal("expected error for missing index")
	}
}

func TestReplaceFileAndFTS(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	rec := wonktype.FileRecord{Path: "src/main.go", Language: "go", Hash: "abc123", LastIndexed: 1700000000, LineCount: 10, Imports: []string{"fmt"}}
	symbols := []wonktype.Symbol{{Name: "processPayment", Kind: wonktype.KindFunction, File: rec.Path, Line: 1, Language: "go"}}

	if err := db.ReplaceFile(ctx, rec, symbols, nil); err != nil {
		t.Fatal(err)
	}

	if got := db.CountMatchingSymbols("processPayment"); got != 1 {
		t.Errorf("expected 1 matching symbol, got %d", got)
	}

	found, err := db.FindSymbols("process", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Name != "processPayment" {
		t.Errorf("expected substring match to find processPayment, got %v", found)
	}

	imports, err := db.Imports(rec.Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 1 || imports[0] != "fmt" {
		t.Errorf("expected imports [fmt], got %v", imports)
	}
}

func TestReplaceFileClearsPreviousSymbols(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	rec := wonktype.FileRecord{Path: "a.go", Hash: "h1", LastIndexed: 1}
	if err := db.ReplaceFile(ctx, rec, []wonktype.Symbol{{Name: "oldName", Kind: wonktype.KindFunction, File: "a.go", Line: 1}}, nil); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceFile(ctx, rec, []wonktype.Symbol{{Name: "newName", Kind: wonktype.KindFunction, File: "a.go", Line: 1}}, nil); err != nil {
		t.Fatal(err)
	}

	if got := db.CountMatchingSymbols("oldName"); got != 0 {
		t.Errorf("old symbol should be gone from FTS, got count %d", got)
	}
	if got := db.CountMatchingSymbols("newName"); got != 1 {
		t.Errorf("new symbol should be present, got count %d", got)
	}
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	rec := wonktype.FileRecord{Path: "a.go", Hash: "h1", LastIndexed: 1}
	if err := db.ReplaceFile(ctx, rec, []wonktype.Symbol{{Name: "f", Kind: wonktype.KindFunction, File: "a.go", Line: 1}}, nil); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveFile(ctx, "a.go"); err != nil {
		t.Fatal(err)
	}
	if _, ok := db.FileHash("a.go"); ok {
		t.Error("file row should be gone after RemoveFile")
	}
	if got := db.CountMatchingSymbols("f"); got != 0 {
		t.Errorf("symbols should be gone, got count %d", got)
	}
}

func TestFindRepoRootGit(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	root, err := FindRepoRoot(sub)
	if err != nil {
		t.Fatal(err)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if root != resolved {
		t.Errorf("expected %s, got %s", resolved, root)
	}
}

func TestFindRepoRootFails(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "lonely")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := FindRepoRoot(sub); err == nil {
		t.Fatal("expected error when no .git or .wonk marker exists")
	}
}

func TestRepoHashDeterministic(t *testing.T) {
	h1 := RepoHash("/home/user/projects/myrepo")
	h2 := RepoHash("/home/user/projects/myrepo")
	if h1 != h2 {
		t.Fatal("hash should be deterministic")
	}
	if len(h1) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(h1))
	}
}

func TestCentralAndLocalIndexPath(t *testing.T) {
	t.Setenv("WONK_DATA_HOME", t.TempDir())
	central, err := CentralIndexPath("/home/user/repo")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(central) != "index.db" {
		t.Errorf("expected index.db, got %s", central)
	}

	local := LocalIndexPath("/home/user/repo")
	if local != filepath.Join("/home/user/repo", ".wonk", "index.db") {
		t.Errorf("unexpected local path: %s", local)
	}
}

func TestFindExistingIndexPrefersLocal(t *testing.T) {
	t.Setenv("WONK_DATA_HOME", t.TempDir())
	repo := t.TempDir()

	local := LocalIndexPath(repo)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(local, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}

	central, err := CentralIndexPath(repo)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(central), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(central, []byte("central"), 0o644); err != nil {
		t.Fatal(err)
	}

	found, ok := FindExistingIndex(repo)
	if !ok || found != local {
		t.Errorf("expected local index to win, got %s ok=%v", found, ok)
	}
}

func TestWriteAndReadMeta(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "index.db")
	if err := WriteMeta(dbPath, "/fake/repo", []string{"go", "python"}); err != nil {
		t.Fatal(err)
	}
	meta, err := ReadMeta(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if meta.RepoPath != "/fake/repo" {
		t.Errorf("unexpected repo path: %s", meta.RepoPath)
	}
	if len(meta.Languages) != 2 {
		t.Errorf("unexpected languages: %v", meta.Languages)
	}
	if meta.Created == "" {
		t.Error("created timestamp should be set")
	}
}
