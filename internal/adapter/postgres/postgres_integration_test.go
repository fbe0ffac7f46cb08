package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sadopc/datagate/internal/adapter"
)

// Set DATAGATE_PG_DSN (e.g. postgres://localhost:5432/datagate_test?sslmode=disable)
// to run these against a live server.
func connectForTest(t *testing.T) *Conn {
	t.Helper()
	dsn := os.Getenv("DATAGATE_PG_DSN")
	if dsn == "" {
		t.Skip("skipping: DATAGATE_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := New().Connect(ctx, adapter.Config{URI: dsn})
	if err != nil {
		t.Skipf("skipping: cannot connect to PostgreSQL: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn.(*Conn)
}

func exec(t *testing.T, c *Conn, q string, params ...any) *adapter.QueryResult {
	t.Helper()
	res, err := c.Execute(context.Background(), q, params)
	if err != nil {
		t.Fatalf("Execute(%q): %v", q, err)
	}
	return res
}

func TestIntegration_ConnectAndPing(t *testing.T) {
	conn := connectForTest(t)

	if err := conn.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if conn.AdapterName() != "postgres" {
		t.Errorf("AdapterName() = %q, want %q", conn.AdapterName(), "postgres")
	}
	if conn.DatabaseName() == "" {
		t.Error("DatabaseName() is empty")
	}
}

func TestIntegration_Execute_DDL_and_DML(t *testing.T) {
	conn := connectForTest(t)
	ctx := context.Background()

	conn.Execute(ctx, "DROP TABLE IF EXISTS dg_users", nil)
	t.Cleanup(func() { conn.Execute(ctx, "DROP TABLE IF EXISTS dg_users", nil) })

	res := exec(t, conn, `
		CREATE TABLE dg_users (
			id     SERIAL PRIMARY KEY,
			name   VARCHAR(100) NOT NULL,
			active BOOLEAN DEFAULT true
		)`)
	if res.IsSelect {
		t.Error("CREATE TABLE should not be a SELECT result")
	}

	res = exec(t, conn, "INSERT INTO dg_users (name) VALUES ($1), ($2)", "alice", "bob")
	if res.RowCount != 2 {
		t.Errorf("INSERT RowCount = %d, want 2", res.RowCount)
	}
	if res.LastInsertID != nil {
		t.Errorf("LastInsertID = %v, want nil", *res.LastInsertID)
	}

	res = exec(t, conn, "SELECT id, name, active FROM dg_users WHERE name = $1", "bob")
	if !res.IsSelect || res.RowCount != 1 {
		t.Fatalf("SELECT = %+v, want one row", res)
	}
	if v, _ := res.Rows[0].Get("name"); v != "bob" {
		t.Errorf("name = %#v, want bob", v)
	}
	if v, _ := res.Rows[0].Get("active"); v != true {
		t.Errorf("active = %#v, want true", v)
	}

	tables, err := conn.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	found := false
	for _, name := range tables {
		if name == "dg_users" {
			found = true
		}
	}
	if !found {
		t.Errorf("Tables() = %v, missing dg_users", tables)
	}

	page, err := conn.ReadTable(ctx, "dg_users", 1, 1)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if page.RowCount != 1 {
		t.Errorf("ReadTable RowCount = %d, want 1", page.RowCount)
	}

	cols, err := conn.Columns(ctx, "dg_users")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != 3 || !cols[0].IsPK || cols[1].Nullable {
		t.Errorf("Columns() = %+v", cols)
	}
}

func TestIntegration_DataTypes(t *testing.T) {
	conn := connectForTest(t)
	ctx := context.Background()

	conn.Execute(ctx, "DROP TABLE IF EXISTS dg_types", nil)
	t.Cleanup(func() { conn.Execute(ctx, "DROP TABLE IF EXISTS dg_types", nil) })

	exec(t, conn, `
		CREATE TABLE dg_types (
			c_int     INT,
			c_bigint  BIGINT,
			c_numeric NUMERIC(10,2),
			c_uuid    UUID
		)`)
	exec(t, conn, `INSERT INTO dg_types VALUES (42, 9999999999, 99.99, 'a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11')`)

	res := exec(t, conn, "SELECT * FROM dg_types")
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}
	row := res.Rows[0]

	checks := map[string]any{
		"c_int":     int32(42),
		"c_bigint":  int64(9999999999),
		"c_numeric": "99.99",
		"c_uuid":    "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11",
	}
	for key, want := range checks {
		if got, _ := row.Get(key); got != want {
			t.Errorf("%s: got %#v, want %#v", key, got, want)
		}
	}
}

func TestIntegration_ErrorHandling(t *testing.T) {
	conn := connectForTest(t)
	ctx := context.Background()

	if _, err := conn.Execute(ctx, "SELECT * FROM nonexistent_table_xyz", nil); err == nil {
		t.Error("expected error for nonexistent table, got nil")
	}
	if _, err := conn.Execute(ctx, "SELEC broken", nil); err == nil {
		t.Error("expected error for syntax error, got nil")
	}
}
