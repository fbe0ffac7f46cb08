package adapter

import (
	"errors"
	"testing"
	"time"
)

func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    Engine
		wantErr bool
	}{
		{in: "sqlite", want: SQLite},
		{in: "SQLite3", want: SQLite},
		{in: "mysql", want: MySQL},
		{in: "postgres", want: Postgres},
		{in: "PostgreSQL", want: Postgres},
		{in: "mongodb", want: MongoDB},
		{in: "mongo", want: MongoDB},
		{in: " duckdb ", want: DuckDB},
		{in: "unknown", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEngine(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEngine) {
					t.Fatalf("ParseEngine(%q) error = %v, want ErrUnknownEngine", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEngine(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseEngine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEngineFamily(t *testing.T) {
	for _, e := range Engines() {
		want := Relational
		if e == MongoDB {
			want = Document
		}
		if got := e.Family(); got != want {
			t.Errorf("%s.Family() = %s, want %s", e, got, want)
		}
	}
}

func TestIsReadStatement(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"  select * from users", true},
		{"\n\tSeLeCt 1", true},
		{"WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"SHOW TABLES", true},
		{"PRAGMA table_info(users)", true},
		{"EXPLAIN SELECT 1", true},
		{"DESCRIBE users", true},
		{"DESC users", true},
		{"VALUES (1), (2)", true},
		{"TABLE users", true},
		{"-- comment\nSELECT 1", true},
		{"/* block */ SELECT 1", true},
		{"/* a */ -- b\n SELECT 1", true},
		{"INSERT INTO users VALUES (1)", false},
		{"UPDATE users SET x = 1", false},
		{"DELETE FROM users", false},
		{"CREATE TABLE t (id INT)", false},
		{"DROP TABLE t", false},
		{"SELECTED", false},
		{"DESCRIPTION", false},
		{"-- only a comment", false},
		{"/* unterminated", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := IsReadStatement(tt.query); got != tt.want {
				t.Errorf("IsReadStatement(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestLeadingKeyword(t *testing.T) {
	if got := LeadingKeyword("select(1)"); got != "SELECT" {
		t.Errorf("LeadingKeyword = %q, want %q", got, "SELECT")
	}
	if got := LeadingKeyword("(SELECT 1)"); got != "" {
		t.Errorf("LeadingKeyword = %q, want empty", got)
	}
}

func TestNormalizeValue(t *testing.T) {
	if got := NormalizeValue([]byte("abc")); got != "abc" {
		t.Errorf("NormalizeValue([]byte) = %#v, want %q", got, "abc")
	}

	id := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	if got := NormalizeValue(id); got != "123e4567-e89b-12d3-a456-426614174000" {
		t.Errorf("NormalizeValue(uuid) = %#v", got)
	}

	if got := NormalizeValue(int64(7)); got != int64(7) {
		t.Errorf("NormalizeValue(int64) = %#v, want 7", got)
	}
	if got := NormalizeValue(nil); got != nil {
		t.Errorf("NormalizeValue(nil) = %#v, want nil", got)
	}
}

func TestExecResult(t *testing.T) {
	id := int64(42)
	res := ExecResult(3, &id, time.Now())

	if res.IsSelect {
		t.Error("expected IsSelect to be false")
	}
	if res.RowCount != 3 {
		t.Errorf("RowCount = %d, want 3", res.RowCount)
	}
	if res.Rows == nil || len(res.Rows) != 0 {
		t.Errorf("Rows = %#v, want empty non-nil slice", res.Rows)
	}
	if res.LastInsertID == nil || *res.LastInsertID != 42 {
		t.Errorf("LastInsertID = %v, want 42", res.LastInsertID)
	}
	if res.Message != "3 row(s) affected" {
		t.Errorf("Message = %q", res.Message)
	}
}

func TestRowsResult_Empty(t *testing.T) {
	res := RowsResult(nil, nil, time.Now())
	if !res.IsSelect {
		t.Error("expected IsSelect to be true")
	}
	if res.Columns == nil || res.Rows == nil {
		t.Error("expected non-nil columns and rows")
	}
	if res.RowCount != 0 {
		t.Errorf("RowCount = %d, want 0", res.RowCount)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name string
		q    rune
		want string
	}{
		{"users", '"', `"users"`},
		{`we"ird`, '"', `"we""ird"`},
		{"order", '`', "`order`"},
		{"a`b", '`', "`a``b`"},
		{"x; DROP TABLE y", '"', `"x; DROP TABLE y"`},
	}
	for _, tt := range tests {
		if got := QuoteIdentifier(tt.name, tt.q); got != tt.want {
			t.Errorf("QuoteIdentifier(%q, %q) = %s, want %s", tt.name, tt.q, got, tt.want)
		}
	}
}
