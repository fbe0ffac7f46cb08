//go:build duckdb

package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sadopc/datagate/internal/adapter"
	"github.com/sadopc/datagate/internal/schema"
)

// Enabled reports whether this build includes the DuckDB driver.
const Enabled = true

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// Adapter implements adapter.Adapter for DuckDB database files.
type Adapter struct{}

// New returns the DuckDB adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Engine() adapter.Engine { return adapter.DuckDB }
func (a *Adapter) DefaultPort() int       { return 0 }

func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) (adapter.Connection, error) {
	dsn := resolvePath(cfg)

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}

	name := ":memory:"
	if dsn != "" {
		name = filepath.Base(dsn)
	}
	return &Conn{db: db, dbName: name}, nil
}

// resolvePath returns the database file, or "" for an in-memory database.
func resolvePath(cfg adapter.Config) string {
	dsn := cfg.Path
	if dsn == "" {
		dsn = cfg.URI
	}
	dsn = strings.TrimPrefix(dsn, "duckdb://")
	if dsn == ":memory:" {
		return ""
	}
	return dsn
}

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

// Conn is an open DuckDB database.
type Conn struct {
	db     *sql.DB
	dbName string
}

func (c *Conn) DatabaseName() string { return c.dbName }
func (c *Conn) AdapterName() string  { return string(adapter.DuckDB) }

func (c *Conn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Conn) Close() error {
	return c.db.Close()
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Tables lists the tables of the current schema.
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	query := `SELECT table_name
		FROM information_schema.tables
		WHERE table_catalog = current_database() AND table_schema = current_schema()
		ORDER BY table_name`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("duckdb: tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("duckdb: tables scan: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *Conn) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	query := `SELECT column_name,
			data_type,
			CASE WHEN is_nullable = 'YES' THEN true ELSE false END,
			COALESCE(column_default, ''),
			CASE WHEN column_name IN (
				SELECT kcu.column_name
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
				  ON tc.constraint_name = kcu.constraint_name
				  AND tc.table_catalog = kcu.table_catalog
				  AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
				  AND tc.table_catalog = current_database()
				  AND tc.table_schema = current_schema()
				  AND tc.table_name = ?
			) THEN true ELSE false END
		FROM information_schema.columns
		WHERE table_catalog = current_database() AND table_schema = current_schema() AND table_name = ?
		ORDER BY ordinal_position`
	rows, err := c.db.QueryContext(ctx, query, table, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: columns: %w", err)
	}
	defer rows.Close()

	cols := []schema.Column{}
	for rows.Next() {
		var col schema.Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.Default, &col.IsPK); err != nil {
			return nil, fmt.Errorf("duckdb: columns scan: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Execute runs a statement with positional "?" parameters.
func (c *Conn) Execute(ctx context.Context, query string, params []any) (*adapter.QueryResult, error) {
	start := time.Now()
	if adapter.IsReadStatement(query) {
		return c.executeSelect(ctx, query, params, start)
	}

	res, err := c.db.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("duckdb: exec: %w", err)
	}
	affected, _ := res.RowsAffected()
	return adapter.ExecResult(affected, nil, start), nil
}

// ReadTable returns one page of rows from table.
func (c *Conn) ReadTable(ctx context.Context, name string, limit, offset int) (*adapter.QueryResult, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", adapter.QuoteIdentifier(name, '"'))
	return c.executeSelect(ctx, query, []any{limit, offset}, time.Now())
}

func (c *Conn) executeSelect(ctx context.Context, query string, params []any, start time.Time) (*adapter.QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("duckdb: query: %w", err)
	}
	defer rows.Close()

	cols, records, err := adapter.ScanRecords(rows, convertValue)
	if err != nil {
		return nil, fmt.Errorf("duckdb: %w", err)
	}
	return adapter.RowsResult(cols, records, start), nil
}

// convertValue renders HUGEINT, DECIMAL and other driver types that have
// no JSON form through their String method.
func convertValue(v any, _ *sql.ColumnType) any {
	switch val := v.(type) {
	case time.Time:
		return val
	case fmt.Stringer:
		return val.String()
	}
	return v
}
