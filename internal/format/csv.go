package format

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sadopc/datagate/internal/table"
)

var utf8BOM = []byte("\ufeff")

type csvParser struct{}

func (csvParser) Kind() Kind { return CSV }

// Parse reads delimited text. The first non-blank record is the header when
// opts.Header is set; otherwise fields are named Column1..ColumnN by position.
// encoding/csv drops fully empty lines on its own, so SkipBlank only decides
// the fate of records whose fields are all empty (",,").
func (csvParser) Parse(data []byte, opts Options) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New("csv: input is not valid UTF-8")
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1

	var (
		columns []string
		rows    []table.Record
		header  = opts.Header
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}

		blank := isBlank(rec)
		if header {
			if blank {
				continue
			}
			columns = columnNames(rec)
			header = false
			continue
		}
		if blank && opts.SkipBlank {
			continue
		}

		rows = append(rows, csvRecord(rec, columns, opts.Header))
	}

	if !opts.Header && len(rows) > 0 {
		columns = rows[0].Keys()
	}
	if columns == nil {
		columns = []string{}
	}

	return &Result{
		Kind:  CSV,
		Table: &table.Table{Columns: columns, Rows: rows},
		Metadata: map[string]any{
			"delimiter":  string(delim),
			"hasHeaders": opts.Header,
		},
	}, nil
}

func csvRecord(fields, columns []string, named bool) table.Record {
	if named && len(fields) > len(columns) {
		columns = extraColumnNames(columns, len(fields))
	}
	rec := make(table.Record, len(fields))
	for i, v := range fields {
		key := positionalName(i)
		if named {
			key = columns[i]
		}
		rec[i] = table.Field{Key: key, Value: v}
	}
	return rec
}

// extraColumnNames extends columns to n names for a record wider than the
// header. Extra fields are named by position (ColumnN) with a numeric suffix
// when the header already uses that name.
func extraColumnNames(columns []string, n int) []string {
	seen := make(map[string]bool, n)
	for _, c := range columns {
		seen[c] = true
	}
	names := make([]string, len(columns), n)
	copy(names, columns)
	for i := len(columns); i < n; i++ {
		base := positionalName(i)
		name := base
		for k := 2; seen[name]; k++ {
			name = fmt.Sprintf("%s_%d", base, k)
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// positionalName is the synthesized name for the i-th (0-based) column.
func positionalName(i int) string {
	return fmt.Sprintf("Column%d", i+1)
}

// columnNames turns raw header cells into usable, unique column names. Empty
// cells become ColumnN (1-based position) and repeated names get a numeric
// suffix: a, a_2, a_3.
func columnNames(raw []string) []string {
	names := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = positionalName(i)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name]++
		names[i] = name
	}
	return names
}
