package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPIDRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if _, ok := ReadPID(dir); ok {
		t.Fatal("expected no PID before WritePID")
	}
	if err := WritePID(dir); err != nil {
		t.Fatal(err)
	}
	pid, ok := ReadPID(dir)
	if !ok || pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %d (ok=%v)", os.Getpid(), pid, ok)
	}
	if !IsRunning(dir) {
		t.Fatal("expected IsRunning true for our own pid")
	}
	if err := RemovePID(dir); err != nil {
		t.Fatal(err)
	}
	if _, ok := ReadPID(dir); ok {
		t.Fatal("expected PID file gone after RemovePID")
	}
}

func TestCheckStalePIDRemovesDeadProcess(t *testing.T) {
	dir := t.TempDir()
	// PID 1 typically exists, so pick one unlikely to be alive: use a
	// large unused-looking value. This isn't bulletproof but matches
	// daemon.rs's own test approach of using an implausible pid.
	path := PidFilePath(dir)
	if err := os.WriteFile(path, []byte("999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CheckStalePID(dir); err != nil {
		t.Fatal(err)
	}
	if _, ok := ReadPID(dir); ok {
		t.Error("expected stale PID file to be removed")
	}
}

func TestShouldProcessRejectsGitAndExcludedDirs(t *testing.T) {
	root := "/repo"
	cases := []struct {
		path string
		want bool
	}{
		{"/repo/.git/HEAD", false},
		{"/repo/node_modules/pkg/index.js", false},
		{"/repo/src/main.go", true},
		{"/repo/.hidden/file.go", false},
		{"/repo/.github/workflows/ci.yml", true},
	}
	for _, c := range cases {
		got := ShouldProcess(c.path, root)
		if got != c.want {
			t.Errorf("ShouldProcess(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestShouldProcessRejectsNestedWorktree(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "vendor-repo")
	if err := os.MkdirAll(filepath.Join(nested, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if ShouldProcess(filepath.Join(nested, "file.go"), root) {
		t.Error("expected nested worktree file to be rejected")
	}
}
