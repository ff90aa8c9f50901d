package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"wonk/internal/store"
	"wonk/internal/wonkerr"
	"wonk/internal/wonktype"
)

// stopPollInterval and stopTimeout bound how long Stop waits for a
// signaled daemon to remove its own PID file, matching daemon.rs's
// 25 x 200ms = 5s budget.
const (
	stopPollInterval = 200 * time.Millisecond
	stopTimeout      = 5 * time.Second
)

func parseUnix(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func indexDirFor(repoRoot string, local bool) (string, error) {
	indexPath, err := store.IndexPathFor(repoRoot, local)
	if err != nil {
		return "", err
	}
	return filepath.Dir(indexPath), nil
}

// Spawn starts the daemon for repoRoot as a detached subprocess running
// `<self> daemon run --repo <repoRoot> [--local]`, re-executing the
// current binary rather than forking: the Go runtime cannot safely
// fork a process with live goroutines, so detachment instead comes from
// SysProcAttr{Setsid: true} plus redirecting the child's stdio to a log
// file and never waiting on it. Fails with DaemonAlreadyRunning if a
// live daemon is already registered for this index.
func Spawn(repoRoot string, local bool) (int, error) {
	indexDir, err := indexDirFor(repoRoot, local)
	if err != nil {
		return 0, err
	}
	if err := CheckStalePID(indexDir); err != nil {
		return 0, err
	}
	if IsRunning(indexDir) {
		return 0, wonkerr.New(wonkerr.DaemonAlreadyRunning, fmt.Sprintf("daemon already running for %s", repoRoot))
	}

	self, err := os.Executable()
	if err != nil {
		return 0, wonkerr.Wrap(wonkerr.IoError, "resolving own executable path", err)
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return 0, wonkerr.Wrap(wonkerr.IoError, "creating index directory", err)
	}
	logFile, err := os.OpenFile(filepath.Join(indexDir, "daemon.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, wonkerr.Wrap(wonkerr.IoError, "opening daemon log", err)
	}
	defer logFile.Close()

	args := []string{"daemon", "run", "--repo", repoRoot}
	if local {
		args = append(args, "--local")
	}
	cmd := exec.Command(self, args...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, wonkerr.Wrap(wonkerr.IoError, "spawning daemon process", err)
	}
	// The child writes its own PID file as the first step of daemon Run;
	// the parent only needs the PID to report back to the caller, so it
	// releases the process without waiting (Wait would block until exit).
	go cmd.Process.Release()

	return cmd.Process.Pid, nil
}

// Stop sends SIGTERM to the running daemon for repoRoot and waits up to
// stopTimeout for it to exit and remove its own PID file.
func Stop(repoRoot string, local bool) error {
	indexDir, err := indexDirFor(repoRoot, local)
	if err != nil {
		return err
	}

	pid, ok := ReadPID(indexDir)
	if !ok {
		return wonkerr.New(wonkerr.NoIndex, "daemon is not running (no PID file)")
	}
	if !processAlive(pid) {
		_ = RemovePID(indexDir)
		return wonkerr.New(wonkerr.StalePid, "daemon was not running (stale PID file removed)")
	}

	if err := Kill(pid, unix.SIGTERM); err != nil {
		return wonkerr.Wrap(wonkerr.IoError, "signaling daemon", err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = RemovePID(indexDir)
			return nil
		}
		time.Sleep(stopPollInterval)
	}
	return wonkerr.New(wonkerr.IoError, fmt.Sprintf("daemon (pid %d) did not exit within %s of SIGTERM", pid, stopTimeout))
}

// Status reports the daemon's recorded status for repoRoot, reading
// daemon_status from the index database. The second return value is
// false when no live daemon is registered — not an error, per
// SPEC_FULL.md's `daemon status` entry ("prints not running and exits 0").
func Status(repoRoot string, local bool) (wonktype.DaemonStatus, bool, error) {
	indexPath, err := store.IndexPathFor(repoRoot, local)
	if err != nil {
		return wonktype.DaemonStatus{}, false, err
	}

	indexDir := filepath.Dir(indexPath)
	pid, ok := ReadPID(indexDir)
	if !ok || !processAlive(pid) {
		return wonktype.DaemonStatus{}, false, nil
	}

	db, err := store.OpenExisting(indexPath)
	if err != nil {
		return wonktype.DaemonStatus{}, false, err
	}
	defer db.Close()

	status := wonktype.DaemonStatus{PID: pid}
	if v, ok := db.DaemonStatusValue("run_id"); ok {
		status.RunID = v
	}
	if v, ok := db.DaemonStatusValue("state"); ok {
		status.State = v
	}
	if v, ok := db.DaemonStatusValue("uptime_start"); ok {
		status.UptimeStart = parseUnix(v)
	}
	if v, ok := db.DaemonStatusUpdatedAt("state"); ok {
		status.UpdatedAt = v
	}
	if v, ok := db.DaemonStatusValue("queued"); ok {
		status.Queued = int(parseUnix(v))
	}
	if v, ok := db.DaemonStatusValue("last_error"); ok {
		status.LastError = v
	}
	return status, true, nil
}
