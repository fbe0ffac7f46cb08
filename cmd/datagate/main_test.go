package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadopc/datagate/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "datagate dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestEngines(t *testing.T) {
	out, err := run(t, "engines")
	if err != nil {
		t.Fatalf("engines: %v", err)
	}
	for _, want := range []string{"sqlite", "mysql", "postgres", "mongodb", "duckdb", "document", "port 5432"} {
		if !strings.Contains(out, want) {
			t.Errorf("engines output missing %q:\n%s", want, out)
		}
	}
}

func TestInspect_CSV(t *testing.T) {
	path := writeFile(t, "inventory.csv", "sku;qty;price\nA-1;3;9.5\nB-2;;12\n")

	out, err := run(t, "inspect", "--theme", "plain", "-d", ";", path)
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	for _, want := range []string{"inventory.csv", "csv", "2 rows", "sku", "qty", "price", "integer", "float", "A-1", "B-2", "Preview (2 of 2 rows)"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestInspect_Limit(t *testing.T) {
	path := writeFile(t, "n.csv", "n\n1\n2\n3\n4\n")

	out, err := run(t, "inspect", "--theme", "plain", "-n", "2", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "Preview (2 of 4 rows)") {
		t.Errorf("limit not applied:\n%s", out)
	}
}

func TestInspect_JSONNulls(t *testing.T) {
	path := writeFile(t, "people.json", `[{"name":"ada","email":null}]`)

	out, err := run(t, "inspect", "--theme", "plain", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "NULL") {
		t.Errorf("null cell not rendered:\n%s", out)
	}
}

func TestInspect_OutputCSV(t *testing.T) {
	path := writeFile(t, "people.json", `[{"name":"ada","age":36},{"name":"alan","age":41,"note":"x"}]`)

	out, err := run(t, "inspect", "-o", "csv", "-n", "0", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	want := "name,age\nada,36\nalan,41\n"
	if out != want {
		t.Errorf("csv output = %q, want %q", out, want)
	}
}

func TestInspect_OutputJSON(t *testing.T) {
	path := writeFile(t, "n.csv", "n,label\n1,one\n2,two\n3,three\n")

	out, err := run(t, "inspect", "-o", "json", "-n", "2", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, `"label": "two"`) || strings.Contains(out, "three") {
		t.Errorf("json output:\n%s", out)
	}
}

func TestInspect_Errors(t *testing.T) {
	csvPath := writeFile(t, "a.csv", "a\n1\n")
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"inspect", filepath.Join(t.TempDir(), "nope.csv")}},
		{"unsupported extension", []string{"inspect", writeFile(t, "a.parquet", "x")}},
		{"bad delimiter", []string{"inspect", "-d", ";;", csvPath}},
		{"negative limit", []string{"inspect", "-n", "-1", csvPath}},
		{"unknown sheet", []string{"inspect", "--sheet", "Nope", writeFile(t, "b.xlsx", "not a workbook")}},
		{"unknown output", []string{"inspect", "-o", "xml", csvPath}},
		{"no args", []string{"inspect"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"plain", "plain"},
		{int64(42), "42"},
		{3.25, "3.25"},
		{1e21, "1000000000000000000000"},
		{true, "true"},
		{"two\nlines", "two lines"},
		{strings.Repeat("x", 50), strings.Repeat("x", maxCellWidth-1) + "…"},
	}
	for _, tt := range tests {
		if got := cellText(tt.in); got != tt.want {
			t.Errorf("cellText(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LogConfig{Format: "json", Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected json log: %s", out)
	}

	if _, err := newLogger(&buf, config.LogConfig{Format: "text", Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing config: %v", err)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}

	bad := writeFile(t, "bad.yaml", "server:\n  max_page_size: -1\n")
	if _, err := loadConfig(bad); err == nil {
		t.Error("expected error for invalid explicit config")
	}
}

func TestOpenAudit_Disabled(t *testing.T) {
	if l := openAudit(config.AuditConfig{}, nil); l != nil {
		t.Error("expected nil audit logger when disabled")
	}
}

func TestOpenAudit_Path(t *testing.T) {
	cfg := config.DefaultConfig()
	logger, _ := newLogger(&bytes.Buffer{}, cfg.Log)
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	l := openAudit(config.AuditConfig{Enabled: true, Path: path, MaxSizeMB: 1}, logger)
	if l == nil {
		t.Fatal("expected audit logger")
	}
	defer l.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("audit file not created: %v", err)
	}
}

func TestOpenHistory(t *testing.T) {
	logger, _ := newLogger(&bytes.Buffer{}, config.LogConfig{})
	if s := openHistory(config.HistoryConfig{}, logger); s != nil {
		t.Error("expected nil store when disabled")
	}

	path := filepath.Join(t.TempDir(), "history.db")
	s := openHistory(config.HistoryConfig{Enabled: true, Path: path}, logger)
	if s == nil {
		t.Fatal("expected history store")
	}
	defer s.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("history db not created: %v", err)
	}
}
