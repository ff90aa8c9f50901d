// Package index drives the full and incremental build pipelines: walk
// the repo, hash each file with xxh3, parse the ones that changed, and
// write the results to the store. Grounded on
// DeusData-codebase-memory-mcp's internal/pipeline.Pipeline (the
// parallel-hash classifyFiles/updateFileHashes shape, errgroup with
// SetLimit(NumCPU)) combined with original_source/src/pipeline.rs's
// build_index/batch_insert semantics (full rebuild vs incremental
// update as two entry points over the same per-file step).
package index

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"wonk/internal/parse"
	"wonk/internal/store"
	"wonk/internal/walk"
	"wonk/internal/wonkerr"
	"wonk/internal/wonktype"
)

// Stats summarizes one build run, returned to the CLI for `wonk index`'s
// human-readable report and to the daemon's log line.
type Stats struct {
	FilesScanned int
	FilesChanged int
	FilesSkipped int
	FilesRemoved int
	Symbols      int
	References   int
	Duration     time.Duration
	Languages    []string
}

// Builder owns the repo root, the walk options, and the open store used
// across a full or incremental run.
type Builder struct {
	RepoRoot    string
	DB          *store.DB
	MaxFileSize int64
	Log         *slog.Logger
}

// New returns a Builder, defaulting Log to slog.Default() the way the
// teacher's cmd entry points do when no logger is threaded through.
func New(repoRoot string, db *store.DB, maxFileSize int64, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{RepoRoot: repoRoot, DB: db, MaxFileSize: maxFileSize, Log: log}
}

// Full wipes the store and reindexes every file under RepoRoot from
// scratch, used by `wonk index --force` and first-time indexing.
func (b *Builder) Full(ctx context.Context) (Stats, error) {
	start := time.Now()
	if err := b.DB.DropAll(ctx); err != nil {
		return Stats{}, err
	}

	w, err := walk.New(walk.DefaultOptions(b.RepoRoot))
	if err != nil {
		return Stats{}, err
	}
	results, err := w.Collect()
	if err != nil {
		return Stats{}, err
	}

	stats, err := b.indexFiles(ctx, results)
	stats.Duration = time.Since(start)
	return stats, err
}

// Incremental reindexes only the files whose xxh3 content hash has
// changed since the last run, plus removes index entries for files
// that no longer exist on disk. Used by `wonk index` (no --force); the
// daemon uses IncrementalPaths instead.
func (b *Builder) Incremental(ctx context.Context) (Stats, error) {
	start := time.Now()

	w, err := walk.New(walk.DefaultOptions(b.RepoRoot))
	if err != nil {
		return Stats{}, err
	}
	results, err := w.Collect()
	if err != nil {
		return Stats{}, err
	}

	stats, err := b.indexFiles(ctx, results)
	if err != nil {
		return stats, err
	}

	removed, err := b.pruneDeleted(ctx, results)
	stats.FilesRemoved = removed
	stats.Duration = time.Since(start)
	return stats, err
}

// IncrementalPaths reindexes exactly the given repo-relative paths
// (plus prunes any that no longer exist), used by the daemon's
// debounced fsnotify dispatch — it already knows which paths changed
// and should not re-walk the whole tree per event.
func (b *Builder) IncrementalPaths(ctx context.Context, relPaths []string) (Stats, error) {
	start := time.Now()
	var results []walk.Result
	for _, rel := range relPaths {
		full := filepath.Join(b.RepoRoot, rel)
		info, err := os.Stat(full)
		if err != nil {
			// Gone from disk — treat as a deletion.
			if rmErr := b.DB.RemoveFile(ctx, rel); rmErr == nil {
				continue
			}
			continue
		}
		res := walk.Result{Path: full, RelPath: rel, Size: info.Size()}
		if b.MaxFileSize > 0 && info.Size() > b.MaxFileSize {
			res.TooLarge = true
		}
		results = append(results, res)
	}

	stats, err := b.indexFiles(ctx, results)
	stats.Duration = time.Since(start)
	return stats, err
}

type hashOutcome struct {
	hash string
	err  error
}

// indexFiles hashes every result in parallel, skips files whose hash
// matches what's already stored, parses the rest, and writes them.
func (b *Builder) indexFiles(ctx context.Context, results []walk.Result) (Stats, error) {
	stats := Stats{FilesScanned: len(results)}
	if len(results) == 0 {
		return stats, nil
	}

	hashes := make([]hashOutcome, len(results))
	numWorkers := runtime.NumCPU()
	if numWorkers > len(results) {
		numWorkers = len(results)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if r.TooLarge {
				hashes[i] = hashOutcome{hash: ""}
				return nil
			}
			h, err := fileHash(r.Path)
			hashes[i] = hashOutcome{hash: h, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return stats, ctx.Err()
	}

	seenLanguages := map[string]bool{}
	for i, r := range results {
		if r.TooLarge {
			if err := b.recordTooLarge(ctx, r); err != nil {
				return stats, fmt.Errorf("writing %s: %w", r.RelPath, err)
			}
			stats.FilesSkipped++
			continue
		}
		h := hashes[i]
		if h.err != nil {
			b.Log.Warn("index.hash_failed", "path", r.RelPath, "err", h.err)
			continue
		}

		if stored, ok := b.DB.FileHash(r.RelPath); ok && stored == h.hash {
			continue
		}

		content, err := os.ReadFile(r.Path)
		if err != nil {
			b.Log.Warn("index.read_failed", "path", r.RelPath, "err", err)
			continue
		}

		parsed, supported := parse.File(r.RelPath, content)
		var symbols []wonktype.Symbol
		var refs []wonktype.Reference
		var imports []string
		language := ""
		if supported {
			symbols, refs, imports = parsed.Symbols, parsed.References, parsed.Imports
			language = parsed.Language
			seenLanguages[language] = true
		}

		rec := wonktype.FileRecord{
			Path:        r.RelPath,
			Language:    language,
			Hash:        h.hash,
			LastIndexed: time.Now().Unix(),
			LineCount:   countLines(content),
			Imports:     imports,
		}
		if err := b.DB.ReplaceFile(ctx, rec, symbols, refs); err != nil {
			return stats, fmt.Errorf("writing %s: %w", r.RelPath, err)
		}

		stats.FilesChanged++
		stats.Symbols += len(symbols)
		stats.References += len(refs)
	}

	for l := range seenLanguages {
		stats.Languages = append(stats.Languages, l)
	}
	return stats, nil
}

// recordTooLarge writes a files row for a file the walker marked
// TooLarge: no symbols or references, but still present in the index
// so status/deps/ls see it as indexed-but-unparsed rather than absent,
// per the FileTooLarge row of the error-handling table. A repeat run
// against the same oversized file is a no-op past the first write,
// since there's no content hash to change-gate on.
func (b *Builder) recordTooLarge(ctx context.Context, r walk.Result) error {
	if _, ok := b.DB.FileHash(r.RelPath); ok {
		return nil
	}

	b.Log.Warn("index.file_too_large",
		"path", r.RelPath, "size", r.Size,
		"err", wonkerr.New(wonkerr.FileTooLarge, "exceeds index.max_file_size_kb"))

	rec := wonktype.FileRecord{
		Path:        r.RelPath,
		Hash:        "",
		LastIndexed: time.Now().Unix(),
		LineCount:   0,
	}
	return b.DB.ReplaceFile(ctx, rec, nil, nil)
}

// pruneDeleted removes index entries for files recorded in the store
// but absent from the current walk results.
func (b *Builder) pruneDeleted(ctx context.Context, results []walk.Result) (int, error) {
	onDisk := make(map[string]bool, len(results))
	for _, r := range results {
		onDisk[r.RelPath] = true
	}

	indexed, err := b.DB.AllFilePaths()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range indexed {
		if !onDisk[path] {
			if err := b.DB.RemoveFile(ctx, path); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	count := 1
	for _, b := range content {
		if b == '\n' {
			count++
		}
	}
	return count
}
