// Package repos implements `repos list` / `repos clean`, supplemented
// from original_source/src/cli.rs's command surface (named there but
// left undescribed in the distilled spec): enumerating and pruning the
// hashed index bundles under the central data home.
package repos

import (
	"os"
	"path/filepath"

	"wonk/internal/store"
)

// Entry is one hashed index bundle under the central data home.
type Entry struct {
	Hash     string
	RepoPath string
	Created  string
	Languages []string
	SizeBytes int64
	Stale    bool // RepoPath no longer exists on disk
}

// List enumerates every hashed subdirectory under the central index
// root and reads its meta.json.
func List() ([]Entry, error) {
	root, err := store.CentralIndexRoot()
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		dbPath := filepath.Join(root, de.Name(), "index.db")
		meta, err := store.ReadMeta(dbPath)
		if err != nil {
			continue
		}
		size := dirSize(filepath.Join(root, de.Name()))
		_, statErr := os.Stat(meta.RepoPath)
		out = append(out, Entry{
			Hash:      de.Name(),
			RepoPath:  meta.RepoPath,
			Created:   meta.Created,
			Languages: meta.Languages,
			SizeBytes: size,
			Stale:     os.IsNotExist(statErr),
		})
	}
	return out, nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Clean removes every bundle whose repo_path no longer exists, returning
// the count removed and the total bytes reclaimed.
func Clean() (removed int, reclaimed int64, err error) {
	entries, err := List()
	if err != nil {
		return 0, 0, err
	}
	root, err := store.CentralIndexRoot()
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if !e.Stale {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Hash)); err != nil {
			continue
		}
		removed++
		reclaimed += e.SizeBytes
	}
	return removed, reclaimed, nil
}
