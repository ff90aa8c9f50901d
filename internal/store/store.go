// Package store owns the SQLite index: schema, pragmas, repo-root
// discovery, index-path resolution, and the meta.json sidecar. Grounded
// on original_source/src/db.rs (schema shape, pragma set, repo-root
// walk, path-hash scheme) translated from rusqlite to database/sql
// against modernc.org/sqlite — already a teacher-adjacent dependency
// choice (the teacher's internal/db package wrapped database/sql the
// same way before its Postgres/HNSW variants were dropped).
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"wonk/internal/wonkerr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS symbols (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL,
    end_line INTEGER,
    scope TEXT,
    signature TEXT,
    language TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS "references" (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL,
    context TEXT
);

CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    language TEXT,
    hash TEXT NOT NULL,
    last_indexed INTEGER NOT NULL,
    line_count INTEGER,
    symbols_count INTEGER,
    imports_blob TEXT
);

CREATE TABLE IF NOT EXISTS daemon_status (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
CREATE INDEX IF NOT EXISTS idx_references_name ON "references"(name);
CREATE INDEX IF NOT EXISTS idx_references_file ON "references"(file);
`

const ftsSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
    name, kind, file, content=symbols, content_rowid=id
);
`

const triggersSQL = `
CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
    INSERT INTO symbols_fts(rowid, name, kind, file)
    VALUES (new.id, new.name, new.kind, new.file);
END;

CREATE TRIGGER IF NOT EXISTS symbols_bd BEFORE DELETE ON symbols BEGIN
    INSERT INTO symbols_fts(symbols_fts, rowid, name, kind, file)
    VALUES ('delete', old.id, old.name, old.kind, old.file);
END;

CREATE TRIGGER IF NOT EXISTS symbols_bu BEFORE UPDATE ON symbols BEGIN
    INSERT INTO symbols_fts(symbols_fts, rowid, name, kind, file)
    VALUES ('delete', old.id, old.name, old.kind, old.file);
END;

CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
    INSERT INTO symbols_fts(rowid, name, kind, file)
    VALUES (new.id, new.name, new.kind, new.file);
END;
`

const pragmaSQL = "PRAGMA busy_timeout = 5000; PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL; PRAGMA foreign_keys = ON;"

// DB wraps the opened index database.
type DB struct {
	*sql.DB
	Path string
}

// Open creates (if needed) the parent directory, opens path, applies
// pragmas, and ensures the full schema exists.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, wonkerr.Wrap(wonkerr.IoError, "creating index directory", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wonkerr.Wrap(wonkerr.IoError, "opening index database", err)
	}
	sqlDB.SetMaxOpenConns(1) // modernc.org/sqlite connections are not safe to share concurrently

	if _, err := sqlDB.Exec(pragmaSQL); err != nil {
		sqlDB.Close()
		return nil, wonkerr.Wrap(wonkerr.IoError, "setting database pragmas", err)
	}
	if err := applySchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{DB: sqlDB, Path: path}, nil
}

// OpenExisting opens path without creating schema, failing if it is
// absent (the query path: `wonk search` against a repo nobody indexed
// yet should surface NoIndex, not silently create an empty index).
func OpenExisting(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, wonkerr.New(wonkerr.NoIndex, fmt.Sprintf("index not found at %s", path))
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wonkerr.Wrap(wonkerr.IoError, "opening index database", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec(pragmaSQL); err != nil {
		sqlDB.Close()
		return nil, wonkerr.Wrap(wonkerr.IoError, "setting database pragmas", err)
	}
	return &DB{DB: sqlDB, Path: path}, nil
}

func applySchema(db *sql.DB) error {
	for _, stmt := range []string{schemaSQL, ftsSQL, triggersSQL} {
		if _, err := db.Exec(stmt); err != nil {
			return wonkerr.Wrap(wonkerr.IoError, "creating schema", err)
		}
	}
	return nil
}

// DropAll clears every row from every table, used by `wonk index --force`
// and full rebuilds triggered by a schema mismatch.
func (d *DB) DropAll(ctx context.Context) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"symbols", `"references"`, "files", "daemon_status"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// IndexStats summarizes table sizes for the bare `status` command,
// generalizing db.rs's count_matching_symbols from a filtered FTS
// lookup to plain full-table counts.
type IndexStats struct {
	Files      int
	Symbols    int
	References int
}

// Stats reports row counts across the three main tables.
func (d *DB) Stats() (IndexStats, error) {
	var s IndexStats
	if err := d.QueryRow("SELECT COUNT(*) FROM files").Scan(&s.Files); err != nil {
		return s, err
	}
	if err := d.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&s.Symbols); err != nil {
		return s, err
	}
	if err := d.QueryRow(`SELECT COUNT(*) FROM "references"`).Scan(&s.References); err != nil {
		return s, err
	}
	return s, nil
}

// CountMatchingSymbols reports how many symbol names in the FTS index
// match pattern exactly, used by the router's symbol-likely heuristic
// (§4.6). Returns 0 on any query error rather than propagating it —
// an ill-formed FTS5 query just means "not symbol-like".
func (d *DB) CountMatchingSymbols(pattern string) int {
	if pattern == "" {
		return 0
	}
	escaped := strings.ReplaceAll(pattern, `"`, `""`)
	ftsQuery := `"` + escaped + `"`

	var count int
	if err := d.QueryRow("SELECT COUNT(*) FROM symbols_fts WHERE name MATCH ?", ftsQuery).Scan(&count); err != nil {
		return 0
	}
	return count
}

// ---------------------------------------------------------------------
// Repo root discovery and index path resolution
// ---------------------------------------------------------------------

// FindRepoRoot walks upward from start looking for a .git or .wonk
// directory.
func FindRepoRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if canon, err := filepath.EvalSymlinks(current); err == nil {
		current = canon
	}
	for {
		if dirExists(filepath.Join(current, ".git")) || dirExists(filepath.Join(current, ".wonk")) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", wonkerr.New(wonkerr.NoIndex, fmt.Sprintf("could not find repository root (no .git or .wonk) starting from %s", start))
		}
		current = parent
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info != nil
}

// RepoHash returns the first 16 hex characters of SHA-256(repoPath).
func RepoHash(repoPath string) string {
	sum := sha256.Sum256([]byte(repoPath))
	return hex.EncodeToString(sum[:8])
}

// dataHome lets tests and WONK_DATA_HOME override the central
// index root without touching the real user cache directory.
func dataHome() (string, error) {
	if v := os.Getenv("WONK_DATA_HOME"); v != "" {
		return v, nil
	}
	return os.UserCacheDir()
}

// CentralIndexPath returns <data-home>/wonk/index/<hash>/index.db.
func CentralIndexPath(repoPath string) (string, error) {
	home, err := dataHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "wonk", "index", RepoHash(repoPath), "index.db"), nil
}

// CentralIndexRoot returns <data-home>/wonk/index, the directory `repos
// list`/`repos clean` enumerate one hashed subdirectory at a time.
func CentralIndexRoot() (string, error) {
	home, err := dataHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "wonk", "index"), nil
}

// LocalIndexPath returns <repoRoot>/.wonk/index.db.
func LocalIndexPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".wonk", "index.db")
}

// IndexPathFor resolves the index path for repoRoot, honoring the
// --local flag.
func IndexPathFor(repoRoot string, local bool) (string, error) {
	if local {
		return LocalIndexPath(repoRoot), nil
	}
	return CentralIndexPath(repoRoot)
}

// FindExistingIndex checks the local path first, then the central
// path, returning whichever exists.
func FindExistingIndex(repoRoot string) (string, bool) {
	local := LocalIndexPath(repoRoot)
	if _, err := os.Stat(local); err == nil {
		return local, true
	}
	if central, err := CentralIndexPath(repoRoot); err == nil {
		if _, err := os.Stat(central); err == nil {
			return central, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------
// meta.json
// ---------------------------------------------------------------------

// Meta is the sidecar written next to index.db.
type Meta struct {
	RepoPath  string   `json:"repo_path"`
	Created   string   `json:"created"` // RFC3339, per the distilled spec's explicit example
	Languages []string `json:"languages"`
}

func metaPath(indexDBPath string) string {
	return filepath.Join(filepath.Dir(indexDBPath), "meta.json")
}

// WriteMeta writes meta.json next to indexDBPath.
func WriteMeta(indexDBPath, repoPath string, languages []string) error {
	meta := Meta{
		RepoPath:  repoPath,
		Created:   time.Now().UTC().Format(time.RFC3339),
		Languages: languages,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath(indexDBPath), data, 0o644)
}

// ReadMeta reads meta.json from next to indexDBPath.
func ReadMeta(indexDBPath string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(metaPath(indexDBPath))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}
