// Package export writes rows of a dataset or query result as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/datagate/internal/table"
)

// Format is an output encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for names no writer handles.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Write encodes rows in format f.
func Write(w io.Writer, f Format, columns []string, rows []table.Record) error {
	switch f {
	case CSV:
		return WriteCSV(w, columns, rows)
	case JSON:
		return WriteJSON(w, rows)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// WriteCSV writes a header of columns followed by one line per row. Missing
// and null values become empty fields.
func WriteCSV(w io.Writer, columns []string, rows []table.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}

	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			v, _ := row.Get(col)
			line[i] = Text(v)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as an indented JSON array of objects, keeping each
// record's key order.
func WriteJSON(w io.Writer, rows []table.Record) error {
	if rows == nil {
		rows = []table.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// Text renders a single value as plain text. Null is empty; nested arrays and
// objects are written as compact JSON.
func Text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	case table.Record, []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
