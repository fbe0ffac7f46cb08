package format

import "github.com/sadopc/datagate/internal/table"

// Result is the normalized output of a parser. Exactly one of Table or
// Sheets is set: spreadsheets produce one table per sheet.
type Result struct {
	Kind Kind

	Table *table.Table

	Sheets       map[string]*table.Table
	SheetNames   []string
	DefaultSheet string

	Metadata map[string]any
}

// IsSpreadsheet reports whether the result holds named sheets.
func (r *Result) IsSpreadsheet() bool {
	return r.Sheets != nil
}

// Sheet returns the table for the named sheet, or the default sheet when name
// is empty. Non-spreadsheet results ignore the name and return their table.
func (r *Result) Sheet(name string) (*table.Table, bool) {
	if !r.IsSpreadsheet() {
		return r.Table, r.Table != nil
	}
	if name == "" {
		name = r.DefaultSheet
	}
	t, ok := r.Sheets[name]
	return t, ok
}

// RowCount returns the number of rows, summed over sheets for spreadsheets.
func (r *Result) RowCount() int {
	if !r.IsSpreadsheet() {
		if r.Table == nil {
			return 0
		}
		return r.Table.RowCount()
	}
	total := 0
	for _, t := range r.Sheets {
		total += t.RowCount()
	}
	return total
}
