package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/datagate/internal/table"
)

func record(kv ...any) table.Record {
	r := make(table.Record, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		r = append(r, table.Field{Key: kv[i].(string), Value: kv[i+1]})
	}
	return r
}

// --- CSV Tests ---

func TestWriteCSV(t *testing.T) {
	rows := []table.Record{
		record("id", int64(1), "name", "Alice", "email", "alice@example.com"),
		record("id", int64(2), "name", "Bob", "email", nil),
		record("id", int64(3), "name", "Charlie, Jr."),
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []string{"id", "name", "email"}, rows); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}

	// 1 header + 3 data rows.
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "id,name,email" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][2] != "alice@example.com" {
		t.Errorf("row 1 email = %q", records[1][2])
	}
	if records[2][2] != "" {
		t.Errorf("null email = %q, want empty", records[2][2])
	}
	if records[3][1] != "Charlie, Jr." || records[3][2] != "" {
		t.Errorf("row 3 = %v", records[3])
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []string{"a", "b"}, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a,b\n" {
		t.Errorf("output = %q, want header only", buf.String())
	}
}

// --- JSON Tests ---

func TestWriteJSON_KeepsKeyOrder(t *testing.T) {
	rows := []table.Record{record("zeta", int64(1), "alpha", "x", "mid", nil)}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, rows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	z, a, m := strings.Index(out, `"zeta"`), strings.Index(out, `"alpha"`), strings.Index(out, `"mid"`)
	if z < 0 || !(z < a && a < m) {
		t.Errorf("key order not kept:\n%s", out)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["mid"] != nil || decoded[0]["alpha"] != "x" {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("output = %q, want []", buf.String())
	}
}

// --- Dispatch ---

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": CSV, "JSON": JSON, " csv ": CSV} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(xml) error = %v", err)
	}
}

func TestWrite(t *testing.T) {
	rows := []table.Record{record("n", int64(7))}
	var c, j bytes.Buffer
	if err := Write(&c, CSV, []string{"n"}, rows); err != nil {
		t.Fatal(err)
	}
	if c.String() != "n\n7\n" {
		t.Errorf("csv = %q", c.String())
	}
	if err := Write(&j, JSON, []string{"n"}, rows); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(j.String(), `"n": 7`) {
		t.Errorf("json = %q", j.String())
	}
	if err := Write(&c, Format("xml"), nil, nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Write(xml) error = %v", err)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{[]byte("raw"), "raw"},
		{true, "true"},
		{int64(-42), "-42"},
		{json.Number("1.50"), "1.50"},
		{3.25, "3.25"},
		{1e21, "1000000000000000000000"},
		{time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "2024-03-01T12:00:00Z"},
		{[]any{int64(1), "a"}, `[1,"a"]`},
		{record("b", int64(2), "a", int64(1)), `{"b":2,"a":1}`},
		{int32(5), "5"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
