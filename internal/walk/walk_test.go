package walk

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectSkipsAlwaysExcluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "module.exports = {}")

	w, err := New(DefaultOptions(root))
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range results {
		if filepath.Base(filepath.Dir(r.RelPath)) == "pkg" {
			t.Fatalf("node_modules should have been excluded, got %s", r.RelPath)
		}
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %v", len(results), results)
	}
}

func TestCollectSkipsHiddenExceptGithub(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden", "a.go"), "package a")
	writeFile(t, filepath.Join(root, ".github", "workflows", "ci.yml"), "name: ci")

	w, err := New(DefaultOptions(root))
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}

	var sawGithub, sawHidden bool
	for _, r := range results {
		if filepath.ToSlash(r.RelPath) == ".github/workflows/ci.yml" {
			sawGithub = true
		}
		if filepath.ToSlash(r.RelPath) == ".hidden/a.go" {
			sawHidden = true
		}
	}
	if !sawGithub {
		t.Error(".github should be walked despite being hidden")
	}
	if sawHidden {
		t.Error(".hidden should be skipped")
	}
}

func TestCollectWorktreeBoundary(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")
	writeFile(t, filepath.Join(root, "wt-feature", ".git"), "gitdir: /somewhere/else")
	writeFile(t, filepath.Join(root, "wt-feature", "src", "feature.go"), "package feature")

	w, err := New(DefaultOptions(root))
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range results {
		if filepath.ToSlash(r.RelPath) == "wt-feature/src/feature.go" {
			t.Fatal("linked worktree subtree should have been excluded")
		}
	}
}

func TestCollectTooLargeMarker(t *testing.T) {
	root := t.TempDir()
	big := make([]byte, 200)
	writeFile(t, filepath.Join(root, "big.txt"), string(big))

	opts := DefaultOptions(root)
	opts.MaxFileSize = 10
	w, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || !results[0].TooLarge {
		t.Fatalf("expected one too-large result, got %v", results)
	}
}

func TestCollectRestrictPathExcludesSiblingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "top level")
	writeFile(t, filepath.Join(root, "src", "sibling.go"), "package src")
	writeFile(t, filepath.Join(root, "src", "foo", "target.go"), "package foo")

	opts := DefaultOptions(root)
	opts.RestrictPath = "src/foo"
	w, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 1 || filepath.ToSlash(results[0].RelPath) != "src/foo/target.go" {
		t.Fatalf("expected only src/foo/target.go under RestrictPath, got %v", results)
	}
}

func TestCollectRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "*.log\n")
	writeFile(t, filepath.Join(root, "app.log"), "log line")
	writeFile(t, filepath.Join(root, "app.go"), "package app")

	w, err := New(DefaultOptions(root))
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].RelPath != "app.go" {
		t.Fatalf("expected only app.go, got %v", results)
	}
}
