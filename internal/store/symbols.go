package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wonk/internal/wonktype"
)

// ReplaceFile atomically replaces everything the index knows about path:
// its symbols, its references, and its files row (hash, language,
// counts, imports). Grounded on the teacher's embedding store SaveBatch
// (begin, prepare, loop, commit) generalized to three related tables
// instead of one.
func (d *DB) ReplaceFile(ctx context.Context, rec wonktype.FileRecord, symbols []wonktype.Symbol, refs []wonktype.Reference) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE file = ?", rec.Path); err != nil {
		return fmt.Errorf("clearing symbols for %s: %w", rec.Path, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM "references" WHERE file = ?`, rec.Path); err != nil {
		return fmt.Errorf("clearing references for %s: %w", rec.Path, err)
	}

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (name, kind, file, line, col, end_line, scope, signature, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer symStmt.Close()
	for _, s := range symbols {
		if _, err := symStmt.ExecContext(ctx, s.Name, string(s.Kind), rec.Path, s.Line, s.Col, s.EndLine, s.Scope, s.Signature, s.Language); err != nil {
			return fmt.Errorf("inserting symbol %s: %w", s.Name, err)
		}
	}

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO "references" (name, file, line, col, context)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer refStmt.Close()
	for _, r := range refs {
		if _, err := refStmt.ExecContext(ctx, r.Name, rec.Path, r.Line, r.Col, r.Context); err != nil {
			return fmt.Errorf("inserting reference %s: %w", r.Name, err)
		}
	}

	importsBlob, err := json.Marshal(rec.Imports)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (path, language, hash, last_indexed, line_count, symbols_count, imports_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			hash = excluded.hash,
			last_indexed = excluded.last_indexed,
			line_count = excluded.line_count,
			symbols_count = excluded.symbols_count,
			imports_blob = excluded.imports_blob`,
		rec.Path, rec.Language, rec.Hash, rec.LastIndexed, rec.LineCount, len(symbols), string(importsBlob))
	if err != nil {
		return fmt.Errorf("upserting file row for %s: %w", rec.Path, err)
	}

	return tx.Commit()
}

// RemoveFile deletes every record (symbols, references, files row)
// associated with path, used when the watcher observes a delete.
func (d *DB) RemoveFile(ctx context.Context, path string) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM symbols WHERE file = ?", path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM "references" WHERE file = ?`, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

// FileHash returns the stored content hash for path, or ("", false) if
// the file has never been indexed. Used by the incremental pipeline's
// xxh3 change-gate to skip unchanged files.
func (d *DB) FileHash(path string) (string, bool) {
	var hash string
	err := d.QueryRow("SELECT hash FROM files WHERE path = ?", path).Scan(&hash)
	if err != nil {
		return "", false
	}
	return hash, true
}

// AllFilePaths returns every path currently recorded in files, used to
// detect deletions during a full rescan (paths on disk diffed against
// paths in the index).
func (d *DB) AllFilePaths() ([]string, error) {
	rows, err := d.Query("SELECT path FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// FindSymbols returns symbols whose name contains pattern as a
// substring, optionally filtered by kind. Grounded on
// original_source/src/router.rs's query_symbols_db: a plain `LIKE
// '%pattern%'`, not an FTS5 MATCH — unicode61 tokenizes a name like
// "processPayment" as a single token, so `MATCH '"process"'` (no
// trailing wildcard) finds nothing for a substring query. FTS MATCH
// without a wildcard stays correct only for CountMatchingSymbols'
// "does any symbol look like this" heuristic, which wants exact-token
// matching, not substring.
func (d *DB) FindSymbols(pattern string, kind wonktype.SymbolKind, limit int) ([]wonktype.Symbol, error) {
	query := `
		SELECT id, name, kind, file, line, col, end_line, scope, signature, language
		FROM symbols
		WHERE name LIKE ? ESCAPE '\'`
	args := []any{likePattern(pattern)}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY file, line LIMIT ?"
	args = append(args, limit)

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolsByExactName returns symbols whose name equals name exactly,
// used by `wonk sym` and `wonk sig`.
func (d *DB) SymbolsByExactName(name string) ([]wonktype.Symbol, error) {
	rows, err := d.Query(`
		SELECT id, name, kind, file, line, col, end_line, scope, signature, language
		FROM symbols WHERE name = ? ORDER BY file, line`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// ReferencesByName returns every reference occurrence of name, used by
// `wonk ref`.
func (d *DB) ReferencesByName(name string, limit int) ([]wonktype.Reference, error) {
	rows, err := d.Query(`
		SELECT id, name, file, line, col, context
		FROM "references" WHERE name = ? ORDER BY file, line LIMIT ?`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []wonktype.Reference
	for rows.Next() {
		var r wonktype.Reference
		if err := rows.Scan(&r.ID, &r.Name, &r.File, &r.Line, &r.Col, &r.Context); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ReferencesByFile returns every reference occurrence recorded in path,
// used by the smart ranker to build a per-batch definition/reference
// lookup without pulling the whole index into memory.
func (d *DB) ReferencesByFile(path string) ([]wonktype.Reference, error) {
	rows, err := d.Query(`
		SELECT id, name, file, line, col, context
		FROM "references" WHERE file = ? ORDER BY line`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []wonktype.Reference
	for rows.Next() {
		var r wonktype.Reference
		if err := rows.Scan(&r.ID, &r.Name, &r.File, &r.Line, &r.Col, &r.Context); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// SymbolsByFile returns every symbol declared in path, ordered by line,
// for `wonk ls` and the file-detail view.
func (d *DB) SymbolsByFile(path string) ([]wonktype.Symbol, error) {
	rows, err := d.Query(`
		SELECT id, name, kind, file, line, col, end_line, scope, signature, language
		FROM symbols WHERE file = ? ORDER BY line`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// Imports returns the raw import targets recorded for path.
func (d *DB) Imports(path string) ([]string, error) {
	var blob sql.NullString
	err := d.QueryRow("SELECT imports_blob FROM files WHERE path = ?", path).Scan(&blob)
	if err != nil {
		return nil, err
	}
	if !blob.Valid || blob.String == "" {
		return nil, nil
	}
	var imports []string
	if err := json.Unmarshal([]byte(blob.String), &imports); err != nil {
		return nil, err
	}
	return imports, nil
}

// ReverseDeps scans every file's imports_blob for an entry equal to
// target, returning the importing files. Entries are compared as raw
// import strings; no import resolution is applied. There is no join table to
// index this by (§9's explicit blob-column choice), so this is a full
// table scan — acceptable at Wonk's target repo scale (§1).
func (d *DB) ReverseDeps(target string) ([]string, error) {
	rows, err := d.Query("SELECT path, imports_blob FROM files WHERE imports_blob IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var path string
		var blob sql.NullString
		if err := rows.Scan(&path, &blob); err != nil {
			return nil, err
		}
		if !blob.Valid {
			continue
		}
		var imports []string
		if err := json.Unmarshal([]byte(blob.String), &imports); err != nil {
			continue
		}
		for _, imp := range imports {
			if imp == target {
				result = append(result, path)
				break
			}
		}
	}
	return result, rows.Err()
}

// likePattern escapes LIKE metacharacters in pattern and wraps it as
// a %substring% match, so raw user input can't smuggle in its own
// wildcards.
func likePattern(pattern string) string {
	escaped := ""
	for _, r := range pattern {
		switch r {
		case '\\', '%', '_':
			escaped += `\` + string(r)
		default:
			escaped += string(r)
		}
	}
	return "%" + escaped + "%"
}

func scanSymbols(rows *sql.Rows) ([]wonktype.Symbol, error) {
	var symbols []wonktype.Symbol
	for rows.Next() {
		var s wonktype.Symbol
		var kind string
		var endLine sql.NullInt64
		var scope, signature sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &kind, &s.File, &s.Line, &s.Col, &endLine, &scope, &signature, &s.Language); err != nil {
			return nil, err
		}
		s.Kind = wonktype.SymbolKind(kind)
		s.EndLine = int(endLine.Int64)
		s.Scope = scope.String
		s.Signature = signature.String
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// SetDaemonStatus upserts a single daemon_status key/value row.
func (d *DB) SetDaemonStatus(ctx context.Context, key, value string) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO daemon_status (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	return err
}

// DaemonStatusValue reads a single daemon_status value, or ("", false)
// if unset.
func (d *DB) DaemonStatusValue(key string) (string, bool) {
	var value string
	if err := d.QueryRow("SELECT value FROM daemon_status WHERE key = ?", key).Scan(&value); err != nil {
		return "", false
	}
	return value, true
}

// DaemonStatusUpdatedAt returns the updated_at unix timestamp for key.
func (d *DB) DaemonStatusUpdatedAt(key string) (int64, bool) {
	var updated int64
	if err := d.QueryRow("SELECT updated_at FROM daemon_status WHERE key = ?", key).Scan(&updated); err != nil {
		return 0, false
	}
	return updated, true
}

// ClearDaemonStatus removes every daemon_status row, used on graceful
// shutdown so a stale pid/state can't be mistaken for a live daemon.
func (d *DB) ClearDaemonStatus(ctx context.Context) error {
	_, err := d.ExecContext(ctx, "DELETE FROM daemon_status")
	return err
}
