package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"wonk/internal/config"
	"wonk/internal/index"
	"wonk/internal/merkle"
	"wonk/internal/store"
)

const (
	heartbeatInterval = 30 * time.Second
	resyncInterval    = 10 * time.Minute
)

// Run is the body of `wonk daemon run`: the self-re-exec'd child
// reaching this function is the daemon itself. It registers its PID and
// a fresh run id, takes a merkle-tree snapshot to catch any drift from
// while it wasn't running, starts the filesystem watcher, dispatches
// debounced batches into the incremental pipeline, emits a 30s
// heartbeat and a 10-minute coarse resync, and shuts down cleanly on
// SIGTERM/SIGINT — the loop original_source's daemon.rs leaves as a
// placeholder sleep and watcher.rs's run_event_loop never wires into
// an indexer; both are synthesized here from the teacher's incremental
// Builder and FsnotifyWatcher.
func Run(ctx context.Context, repoRoot string, local bool, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	indexPath, err := store.IndexPathFor(repoRoot, local)
	if err != nil {
		return err
	}
	indexDir := filepath.Dir(indexPath)

	if err := WritePID(indexDir); err != nil {
		return err
	}
	defer RemovePID(indexDir)

	db, err := store.OpenExisting(indexPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := config.Load(repoRoot)
	if err != nil {
		return err
	}
	debounce := time.Duration(cfg.Daemon.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	runID := uuid.NewString()
	uptimeStart := time.Now().Unix()
	register := func(state string) {
		db.SetDaemonStatus(ctx, "run_id", runID)
		db.SetDaemonStatus(ctx, "uptime_start", strconv.FormatInt(uptimeStart, 10))
		db.SetDaemonStatus(ctx, "state", state)
	}
	register("starting")

	watcher, err := NewWatcher(repoRoot, debounce)
	if err != nil {
		db.SetDaemonStatus(ctx, "last_error", err.Error())
		return err
	}
	defer watcher.Close()
	watcher.Run()

	builder := index.New(repoRoot, db, int64(cfg.Index.MaxFileSizeKB)*1024, log)

	if changed, err := resyncChangedFiles(repoRoot, indexDir); err != nil {
		log.Warn("startup resync check failed", "error", err)
	} else if len(changed) > 0 {
		log.Info("startup resync found drift since last snapshot", "files", len(changed))
		if _, err := builder.IncrementalPaths(ctx, changed); err != nil {
			log.Error("startup resync failed", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	resync := time.NewTicker(resyncInterval)
	defer resync.Stop()

	var queue []string
	var queueMu sync.Mutex
	queueLen := func() int {
		queueMu.Lock()
		defer queueMu.Unlock()
		return len(queue)
	}

	register("running")
	log.Info("daemon started", "repo", repoRoot, "run_id", runID, "debounce", debounce)

	for {
		select {
		case <-ctx.Done():
			register("stopping")
			db.ClearDaemonStatus(ctx)
			log.Info("daemon stopping", "reason", "context canceled")
			return nil

		case sig := <-sigCh:
			db.SetDaemonStatus(ctx, "state", "stopping")
			db.ClearDaemonStatus(ctx)
			log.Info("daemon stopping", "signal", sig.String())
			return nil

		case batch, ok := <-watcher.Batches():
			if !ok {
				return nil
			}
			queueMu.Lock()
			queue = append(queue, batch...)
			pending := append([]string(nil), queue...)
			queue = queue[:0]
			queueMu.Unlock()

			db.SetDaemonStatus(ctx, "queued", strconv.Itoa(len(pending)))
			if stats, err := builder.IncrementalPaths(ctx, pending); err != nil {
				db.SetDaemonStatus(ctx, "last_error", err.Error())
				log.Error("incremental index failed", "error", err)
			} else {
				log.Info("incremental index", "changed", stats.FilesChanged, "removed", stats.FilesRemoved)
			}
			db.SetDaemonStatus(ctx, "queued", strconv.Itoa(queueLen()))

		case <-heartbeat.C:
			db.SetDaemonStatus(ctx, "state", "running")
			log.Debug("daemon heartbeat", "run_id", runID)

		case <-resync.C:
			changed, err := resyncChangedFiles(repoRoot, indexDir)
			if err != nil {
				log.Warn("periodic resync check failed", "error", err)
				continue
			}
			if len(changed) == 0 {
				continue
			}
			log.Info("periodic resync found drift fsnotify missed", "files", len(changed))
			if _, err := builder.IncrementalPaths(ctx, changed); err != nil {
				db.SetDaemonStatus(ctx, "last_error", err.Error())
				log.Error("periodic resync failed", "error", err)
			}
		}
	}
}

// resyncChangedFiles runs a coarse merkle-tree comparison against the
// snapshot saved in snapshotDir and returns the paths that differ,
// saving the new snapshot as a side effect. This catches drift
// fsnotify never reported — a watch gap while the daemon was down, or
// a dropped event on a network filesystem — without re-hashing and
// re-parsing the whole repository to find it: the root-hash check is
// the expensive work's cheap admission test.
func resyncChangedFiles(repoRoot, snapshotDir string) ([]string, error) {
	builder := merkle.NewBuilder()
	current, err := builder.Build(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("building merkle tree: %w", err)
	}

	snap := merkle.NewStore(snapshotDir)
	previous, err := snap.Load()
	if err != nil {
		return nil, err
	}

	if !merkle.DiffWithEarlyExit(previous, current) {
		return nil, nil
	}

	changes := merkle.Diff(previous, current)
	if err := snap.Save(current); err != nil {
		return nil, err
	}

	paths := changes.AllChanged()
	return append(paths, changes.Deleted...), nil
}
