// Package infer guesses a primitive type for each column of a table from a
// single sample row.
//
// Only the first row is inspected. A column whose first value looks numeric
// is reported as numeric even if later rows hold free text; this keeps schema
// requests O(1) and is a known limitation, not something to widen silently.
package infer

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/datagate/internal/table"
)

// Type is an inferred primitive column type.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeFloat   Type = "float"
	TypeBoolean Type = "boolean"
	TypeDate    Type = "date"
)

// Column is the inferred type of one column.
type Column struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Schema is the inferred schema of a table, in column order.
type Schema []Column

// MarshalJSON writes the schema as an object keyed by column name, in
// column order: {"a": {"type": "integer", "nullable": false}, ...}.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(struct {
			Type     Type `json:"type"`
			Nullable bool `json:"nullable"`
		}{c.Type, c.Nullable})
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the column named name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// FromTable infers a schema for t from its first row. With no rows every
// column is reported as a nullable string.
func FromTable(t *table.Table) Schema {
	cols := t.ColumnNames()
	schema := make(Schema, 0, len(cols))
	if len(t.Rows) == 0 {
		for _, name := range cols {
			schema = append(schema, Column{Name: name, Type: TypeString, Nullable: true})
		}
		return schema
	}
	return FromRecord(cols, t.Rows[0])
}

// FromRecord infers a schema for the given columns from one sample record.
// Columns missing from the record are nullable strings.
func FromRecord(columns []string, sample table.Record) Schema {
	schema := make(Schema, 0, len(columns))
	for _, name := range columns {
		v, ok := sample.Get(name)
		if !ok {
			schema = append(schema, Column{Name: name, Type: TypeString, Nullable: true})
			continue
		}
		schema = append(schema, Column{Name: name, Type: Value(v), Nullable: IsNull(v)})
	}
	return schema
}

// IsNull reports whether v counts as a missing value: nil or an empty string.
func IsNull(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []byte:
		return len(val) == 0
	}
	return false
}

// Value classifies a single value. Numbers win over dates, and booleans are
// only recognized when the value is a native bool: the text "true" is a string.
func Value(v any) Type {
	switch val := v.(type) {
	case nil:
		return TypeString
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32:
		return classifyFloat(float64(val))
	case float64:
		return classifyFloat(val)
	case json.Number:
		return Text(string(val))
	case time.Time:
		return TypeDate
	case []byte:
		return Text(string(val))
	case string:
		return Text(val)
	}
	return TypeString
}

// Text classifies a textual value.
func Text(s string) Type {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeString
	}
	if f, ok := parseDecimal(s); ok {
		return classifyFloat(f)
	}
	if _, ok := ParseDate(s); ok {
		return TypeDate
	}
	return TypeString
}

func classifyFloat(f float64) Type {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return TypeString
	}
	if f == math.Trunc(f) {
		return TypeInteger
	}
	return TypeFloat
}

// parseDecimal accepts plain base-10 numbers only: strconv also understands
// hex, underscores, "Inf" and "NaN", none of which count as numeric here.
func parseDecimal(s string) (float64, bool) {
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case (r == '-' || r == '+') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case (r == 'e' || r == 'E') && i > 0:
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
