package adapter

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sadopc/datagate/internal/table"
)

// ValueConverter adjusts a scanned driver value given its column type.
// Returning the value unchanged is always valid.
type ValueConverter func(v any, ct *sql.ColumnType) any

// ScanRecords reads every row of a database/sql result set into records in
// the result set's column order. Values pass through NormalizeValue and then
// convert, if non-nil.
func ScanRecords(rows *sql.Rows, convert ValueConverter) ([]string, []table.Record, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("column types: %w", err)
	}
	columns := make([]string, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = ct.Name()
	}

	records := []table.Record{}
	dest := make([]any, len(columns))
	for rows.Next() {
		values := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(table.Record, len(columns))
		for i, v := range values {
			v = NormalizeValue(v)
			if convert != nil {
				v = convert(v, colTypes[i])
			}
			rec[i] = table.Field{Key: columns[i], Value: v}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}
	return columns, records, nil
}

// NormalizeValue turns driver-specific values into ones that serialize
// cleanly: byte slices become strings and 16-byte arrays become UUID text.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	}
	return v
}
