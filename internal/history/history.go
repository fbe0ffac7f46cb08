// Package history keeps a searchable log of the statements and table reads
// executed through the gateway, stored in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	connection_id TEXT NOT NULL,
	engine        TEXT NOT NULL,
	database_name TEXT,
	operation     TEXT NOT NULL,
	statement     TEXT,
	table_name    TEXT,
	executed_at   DATETIME NOT NULL,
	duration_ms   INTEGER,
	row_count     INTEGER,
	is_error      BOOLEAN DEFAULT FALSE,
	error         TEXT
)`

const createIndexSQL = `CREATE INDEX IF NOT EXISTS history_connection ON history (connection_id, executed_at)`

const selectColumns = `id, connection_id, engine, database_name, operation, statement, table_name,
	executed_at, duration_ms, row_count, is_error, error`

// DefaultLimit is the number of entries Search returns when no limit is set.
const DefaultLimit = 50

// Entry is one executed statement or table read.
type Entry struct {
	ID           int64     `json:"id"`
	ConnectionID string    `json:"connectionId"`
	Engine       string    `json:"type"`
	DatabaseName string    `json:"database,omitempty"`
	Operation    string    `json:"operation"`
	Statement    string    `json:"query,omitempty"`
	Table        string    `json:"table,omitempty"`
	ExecutedAt   time.Time `json:"executedAt"`
	DurationMS   int64     `json:"durationMs"`
	RowCount     int64     `json:"rowCount"`
	IsError      bool      `json:"isError"`
	Error        string    `json:"error,omitempty"`
}

// Filter narrows Search. Zero fields match everything.
type Filter struct {
	ConnectionID string
	// Contains matches entries whose statement or table name contains the
	// text, case-insensitively.
	Contains string
	Limit    int
}

// Store provides SQLite-backed query history storage.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and ensures the
// schema exists. Parent directories are created with 0o700. The path
// ":memory:" keeps history for the life of the process only.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{createTableSQL, createIndexSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Add inserts a new history entry, stamping it with the current time when
// ExecutedAt is zero. Calling Add on a nil Store is a no-op.
func (s *Store) Add(ctx context.Context, e Entry) error {
	if s == nil {
		return nil
	}
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (connection_id, engine, database_name, operation, statement, table_name,
			executed_at, duration_ms, row_count, is_error, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ConnectionID,
		e.Engine,
		e.DatabaseName,
		e.Operation,
		e.Statement,
		e.Table,
		e.ExecutedAt.UTC(),
		e.DurationMS,
		e.RowCount,
		e.IsError,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("history add: %w", err)
	}
	return nil
}

// Search returns entries matching f, most recent first.
func (s *Store) Search(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.ConnectionID != "" {
		where = append(where, "connection_id = ?")
		args = append(args, f.ConnectionID)
	}
	if f.Contains != "" {
		where = append(where, `(statement LIKE ? ESCAPE '\' OR table_name LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(f.Contains) + "%"
		args = append(args, pattern, pattern)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := "SELECT " + selectColumns + " FROM history"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY executed_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the most recent history entries, limited to limit rows.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.Search(ctx, Filter{Limit: limit})
}

// Clear deletes the entries of one connection, or all entries when
// connectionID is empty, and returns how many were removed.
func (s *Store) Clear(ctx context.Context, connectionID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if connectionID == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM history`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM history WHERE connection_id = ?`, connectionID)
	}
	if err != nil {
		return 0, fmt.Errorf("history clear: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database connection. Closing a nil Store is a
// no-op.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// escapeLike escapes the LIKE wildcards in s using backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// scanEntries reads all rows from the result set into a slice of Entry.
func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		var (
			e                     Entry
			dbName, stmt, tbl, em sql.NullString
		)
		if err := rows.Scan(
			&e.ID,
			&e.ConnectionID,
			&e.Engine,
			&dbName,
			&e.Operation,
			&stmt,
			&tbl,
			&e.ExecutedAt,
			&e.DurationMS,
			&e.RowCount,
			&e.IsError,
			&em,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		e.DatabaseName, e.Statement, e.Table, e.Error = dbName.String, stmt.String, tbl.String, em.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return entries, nil
}
