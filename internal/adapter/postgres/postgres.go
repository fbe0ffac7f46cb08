package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/datagate/internal/adapter"
	"github.com/sadopc/datagate/internal/schema"
	"github.com/sadopc/datagate/internal/table"
)

const (
	defaultHost   = "localhost"
	defaultUser   = "postgres"
	defaultPort   = 5432
	defaultSchema = "public"
)

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct{}

// New returns the PostgreSQL adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Engine() adapter.Engine { return adapter.Postgres }
func (a *Adapter) DefaultPort() int       { return defaultPort }

func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) (adapter.Connection, error) {
	dsn := buildDSN(cfg)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	dbName := extractDBName(dsn)
	if dbName == "" {
		if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres current database: %w", err)
		}
	}

	return &Conn{pool: pool, dbName: dbName}, nil
}

// buildDSN returns cfg.URI when set, otherwise a postgres:// URL from the
// individual fields with host localhost, user postgres and port 5432 as
// defaults.
func buildDSN(cfg adapter.Config) string {
	if cfg.URI != "" {
		return cfg.URI
	}

	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	user := cfg.User
	if user == "" {
		user = defaultUser
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(user, cfg.Password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// extractDBName parses the database name from the DSN.
func extractDBName(dsn string) string {
	if dsn == "" {
		return ""
	}
	// Try URL format first (postgres://... or postgresql://...)
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	// Fallback: keyword=value format (e.g. "host=localhost dbname=myapp")
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}
	return ""
}

// Conn is an open PostgreSQL connection pool.
type Conn struct {
	pool   *pgxpool.Pool
	dbName string
}

func (c *Conn) DatabaseName() string { return c.dbName }
func (c *Conn) AdapterName() string  { return string(adapter.Postgres) }

func (c *Conn) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Tables lists the base tables of the public schema.
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT table_name
		 FROM information_schema.tables
		 WHERE table_schema = $1
		   AND table_type   = 'BASE TABLE'
		 ORDER BY table_name`, defaultSchema)
	if err != nil {
		return nil, fmt.Errorf("postgres tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres tables scan: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (c *Conn) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	pkSet, err := c.primaryKeyColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := c.pool.Query(ctx,
		`SELECT column_name,
		        data_type,
		        is_nullable,
		        COALESCE(column_default, '')
		 FROM information_schema.columns
		 WHERE table_schema = $1
		   AND table_name   = $2
		 ORDER BY ordinal_position`, defaultSchema, table)
	if err != nil {
		return nil, fmt.Errorf("postgres columns: %w", err)
	}
	defer rows.Close()

	cols := []schema.Column{}
	for rows.Next() {
		var name, dtype, nullable, dflt string
		if err := rows.Scan(&name, &dtype, &nullable, &dflt); err != nil {
			return nil, fmt.Errorf("postgres columns scan: %w", err)
		}
		cols = append(cols, schema.Column{
			Name:     name,
			Type:     dtype,
			Nullable: nullable == "YES",
			Default:  dflt,
			IsPK:     pkSet[name],
		})
	}
	return cols, rows.Err()
}

// primaryKeyColumns returns a set of column names that belong to the primary key.
func (c *Conn) primaryKeyColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT a.attname
		 FROM pg_index i
		 JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		 WHERE i.indrelid = to_regclass(quote_ident($1) || '.' || quote_ident($2))
		   AND i.indisprimary`, defaultSchema, table)
	if err != nil {
		return nil, fmt.Errorf("postgres primary keys: %w", err)
	}
	defer rows.Close()

	pk := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres primary keys scan: %w", err)
		}
		pk[name] = true
	}
	return pk, rows.Err()
}

// ---------------------------------------------------------------------------
// Query Execution
// ---------------------------------------------------------------------------

// Execute runs a statement with "$n" parameters.
func (c *Conn) Execute(ctx context.Context, query string, params []any) (*adapter.QueryResult, error) {
	start := time.Now()
	if adapter.IsReadStatement(query) {
		return c.executeSelect(ctx, query, params, start)
	}

	tag, err := c.pool.Exec(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("postgres execute: %w", err)
	}
	res := adapter.ExecResult(tag.RowsAffected(), nil, start)
	res.Message = tag.String()
	return res, nil
}

// ReadTable returns one page of rows from a table of the public schema.
func (c *Conn) ReadTable(ctx context.Context, name string, limit, offset int) (*adapter.QueryResult, error) {
	query := fmt.Sprintf("SELECT * FROM %s.%s LIMIT $1 OFFSET $2",
		adapter.QuoteIdentifier(defaultSchema, '"'), adapter.QuoteIdentifier(name, '"'))
	return c.executeSelect(ctx, query, []any{limit, offset}, time.Now())
}

func (c *Conn) executeSelect(ctx context.Context, query string, params []any, start time.Time) (*adapter.QueryResult, error) {
	rows, err := c.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("postgres execute: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	records := []table.Record{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres execute values: %w", err)
		}
		rec := make(table.Record, len(vals))
		for i, v := range vals {
			rec[i] = table.Field{Key: cols[i], Value: normalizeValue(v)}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres execute rows: %w", err)
	}

	return adapter.RowsResult(cols, records, start), nil
}

// normalizeValue converts pgx-decoded values into JSON-friendly ones.
// NUMERIC keeps its exact decimal text; UUIDs become canonical strings.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int16, int32, int64, float32, float64, time.Time, map[string]any:
		return val
	case pgtype.Numeric:
		dv, err := val.Value()
		if err != nil || dv == nil {
			return nil
		}
		return dv
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case driver.Valuer:
		dv, err := val.Value()
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return adapter.NormalizeValue(dv)
	case fmt.Stringer:
		return val.String()
	}
	return adapter.NormalizeValue(v)
}
