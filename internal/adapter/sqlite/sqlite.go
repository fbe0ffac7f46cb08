package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sadopc/datagate/internal/adapter"
	"github.com/sadopc/datagate/internal/schema"

	_ "modernc.org/sqlite"
)

// DefaultPath is the database file opened when a config names none.
const DefaultPath = "./database.db"

// Adapter implements adapter.Adapter for SQLite databases.
type Adapter struct{}

// New returns the SQLite adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Engine() adapter.Engine { return adapter.SQLite }
func (a *Adapter) DefaultPort() int       { return 0 }

func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) (adapter.Connection, error) {
	dsn := resolvePath(cfg)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One driver connection serializes access and keeps :memory: databases
	// visible to every call.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite enable foreign keys: %w", err)
	}

	dbName := dsn
	if dsn != ":memory:" {
		dbName = filepath.Base(dsn)
	}

	return &Conn{db: db, dbName: dbName}, nil
}

// resolvePath picks the database file from Path, then URI, then the default.
func resolvePath(cfg adapter.Config) string {
	switch {
	case cfg.Path != "":
		return normalizeDSN(cfg.Path)
	case cfg.URI != "":
		return normalizeDSN(cfg.URI)
	}
	return DefaultPath
}

// normalizeDSN strips common SQLite URI prefixes.
func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	if strings.HasPrefix(dsn, "file:") {
		return strings.TrimPrefix(dsn, "file:")
	}
	return dsn
}

// Conn is an open SQLite database.
type Conn struct {
	db     *sql.DB
	dbName string
}

func (c *Conn) AdapterName() string  { return string(adapter.SQLite) }
func (c *Conn) DatabaseName() string { return c.dbName }

func (c *Conn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Conn) Close() error {
	return c.db.Close()
}

// Tables returns all user tables in the database.
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("sqlite tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite tables scan: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns column metadata for the given table from table_info.
func (c *Conn) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("sqlite columns: %w", err)
	}
	defer rows.Close()

	columns := []schema.Column{}
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("sqlite columns scan: %w", err)
		}
		col := schema.Column{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
			IsPK:     pk > 0,
		}
		if dfltValue.Valid {
			col.Default = dfltValue.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// Execute runs a statement with positional "?" parameters.
func (c *Conn) Execute(ctx context.Context, statement string, params []any) (*adapter.QueryResult, error) {
	start := time.Now()
	if adapter.IsReadStatement(statement) {
		return c.executeQuery(ctx, statement, params, start)
	}
	return c.executeExec(ctx, statement, params, start)
}

// ReadTable returns one page of rows from table.
func (c *Conn) ReadTable(ctx context.Context, name string, limit, offset int) (*adapter.QueryResult, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", adapter.QuoteIdentifier(name, '"'))
	return c.executeQuery(ctx, query, []any{limit, offset}, time.Now())
}

func (c *Conn) executeQuery(ctx context.Context, query string, params []any, start time.Time) (*adapter.QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	cols, records, err := adapter.ScanRecords(rows, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite %w", err)
	}
	return adapter.RowsResult(cols, records, start), nil
}

func (c *Conn) executeExec(ctx context.Context, query string, params []any, start time.Time) (*adapter.QueryResult, error) {
	result, err := c.db.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("sqlite exec: %w", err)
	}

	affected, _ := result.RowsAffected()
	var lastID *int64
	if id, err := result.LastInsertId(); err == nil {
		lastID = &id
	}
	return adapter.ExecResult(affected, lastID, start), nil
}
