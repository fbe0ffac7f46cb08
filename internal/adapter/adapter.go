package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/datagate/internal/schema"
	"github.com/sadopc/datagate/internal/table"
)

var ErrUnknownEngine = errors.New("unknown database engine")

// Engine identifies a database engine.
type Engine string

const (
	SQLite   Engine = "sqlite"
	MySQL    Engine = "mysql"
	Postgres Engine = "postgres"
	MongoDB  Engine = "mongodb"
	DuckDB   Engine = "duckdb"
)

// Family groups engines by data model.
type Family int

const (
	Relational Family = iota
	Document
)

func (f Family) String() string {
	switch f {
	case Relational:
		return "relational"
	case Document:
		return "document"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Engines lists every engine kind this build knows about.
func Engines() []Engine {
	return []Engine{SQLite, MySQL, Postgres, MongoDB, DuckDB}
}

// Family returns the data model of the engine.
func (e Engine) Family() Family {
	if e == MongoDB {
		return Document
	}
	return Relational
}

// ParseEngine resolves an engine name case-insensitively, accepting the
// common aliases "postgresql" and "mongo".
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	case "mongodb", "mongo":
		return MongoDB, nil
	case "duckdb":
		return DuckDB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

// Config holds engine-specific connection settings. Network engines use
// Host/Port/User/Password/Database, file engines use Path, and URI (a full
// DSN or connection string) overrides the individual fields when set.
type Config struct {
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	URI      string `json:"uri,omitempty" yaml:"uri,omitempty"`
}

// Adapter opens connections to one engine.
type Adapter interface {
	Engine() Engine
	DefaultPort() int
	Connect(ctx context.Context, cfg Config) (Connection, error)
}

// Connection represents an active database connection.
type Connection interface {
	// Tables lists user tables (or collections) of the connection's default
	// schema or database, sorted by name.
	Tables(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
	Close() error

	DatabaseName() string
	AdapterName() string
}

// Querier is implemented by connections that execute statement text.
// Document stores do not implement it.
type Querier interface {
	Execute(ctx context.Context, statement string, params []any) (*QueryResult, error)
}

// TableReader is implemented by connections that can read a page of rows
// from a table or collection. The table name has already been checked
// against Tables; implementations still quote it.
type TableReader interface {
	ReadTable(ctx context.Context, name string, limit, offset int) (*QueryResult, error)
}

// Describer is implemented by connections that report column metadata.
type Describer interface {
	Columns(ctx context.Context, table string) ([]schema.Column, error)
}

// QueryResult holds the result of a statement or table read.
type QueryResult struct {
	Columns      []string       `json:"columns"`
	Rows         []table.Record `json:"rows"`
	RowCount     int64          `json:"rowCount"`
	LastInsertID *int64         `json:"lastInsertId,omitempty"`
	IsSelect     bool           `json:"isSelect"`
	Message      string         `json:"message,omitempty"`
	Duration     time.Duration  `json:"-"`
}

// ExecResult builds the result of a write or DDL statement.
func ExecResult(affected int64, lastInsertID *int64, start time.Time) *QueryResult {
	return &QueryResult{
		Columns:      []string{},
		Rows:         []table.Record{},
		RowCount:     affected,
		LastInsertID: lastInsertID,
		Message:      fmt.Sprintf("%d row(s) affected", affected),
		Duration:     time.Since(start),
	}
}

// RowsResult builds the result of a read statement.
func RowsResult(columns []string, rows []table.Record, start time.Time) *QueryResult {
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = []table.Record{}
	}
	return &QueryResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: int64(len(rows)),
		IsSelect: true,
		Duration: time.Since(start),
	}
}
