package table

import (
	"bytes"
	"encoding/json"
)

// Field is a single key/value pair inside a Record.
type Field struct {
	Key   string
	Value any
}

// Record is a row keyed by column name. Field order is the column order of
// the source (engine result set, file header or JSON object) and is kept when
// the record is serialized.
type Record []Field

// Get returns the value stored under key. The boolean is false when the key
// is absent, which callers treat differently from a present nil value.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the record's keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Map returns the record as an unordered map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		if _, ok := m[f.Key]; !ok {
			m[f.Key] = f.Value
		}
	}
	return m
}

// MarshalJSON writes the record as a JSON object with keys in record order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Table is one normalized tabular result: ordered column names and rows.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
	// Range is the spreadsheet cell range the table was read from ("A1:C10").
	// Empty for other sources.
	Range string `json:"range,omitempty"`
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnNames returns the table's column names, falling back to the keys of
// the first row when no columns were recorded.
func (t *Table) ColumnNames() []string {
	if len(t.Columns) > 0 || len(t.Rows) == 0 {
		return t.Columns
	}
	return t.Rows[0].Keys()
}
