package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sadopc/datagate/internal/table"
)

type xlsxParser struct{}

func (xlsxParser) Kind() Kind { return XLSX }

// Parse reads every sheet of an OOXML workbook into its own table. The first
// sheet in workbook order is the default sheet.
func (xlsxParser) Parse(data []byte, opts Options) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make(map[string]*table.Table, len(names))
	for _, name := range names {
		t, err := readSheet(f, name, opts)
		if err != nil {
			return nil, fmt.Errorf("xlsx: sheet %q: %w", name, err)
		}
		sheets[name] = t
	}

	var defaultSheet string
	if len(names) > 0 {
		defaultSheet = names[0]
	}

	return &Result{
		Kind:         XLSX,
		Sheets:       sheets,
		SheetNames:   names,
		DefaultSheet: defaultSheet,
		Metadata: map[string]any{
			"totalSheets": len(names),
		},
	}, nil
}

// usedRange is the smallest rectangle (0-based, inclusive) holding every
// non-empty cell of a sheet.
type usedRange struct {
	minRow, maxRow int
	minCol, maxCol int
}

func findUsedRange(rows [][]string) (usedRange, bool) {
	ur := usedRange{minRow: -1, minCol: -1, maxCol: -1}
	for r, cells := range rows {
		for c, v := range cells {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if ur.minRow < 0 {
				ur.minRow = r
			}
			ur.maxRow = r
			if ur.minCol < 0 || c < ur.minCol {
				ur.minCol = c
			}
			if c > ur.maxCol {
				ur.maxCol = c
			}
		}
	}
	return ur, ur.minRow >= 0
}

func (ur usedRange) String() string {
	from, _ := excelize.CoordinatesToCellName(ur.minCol+1, ur.minRow+1)
	to, _ := excelize.CoordinatesToCellName(ur.maxCol+1, ur.maxRow+1)
	return from + ":" + to
}

func readSheet(f *excelize.File, sheet string, opts Options) (*table.Table, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	ur, ok := findUsedRange(rows)
	if !ok {
		return &table.Table{Columns: []string{}}, nil
	}

	cell := func(r, c int) string {
		if r < len(rows) && c < len(rows[r]) {
			return rows[r][c]
		}
		return ""
	}

	width := ur.maxCol - ur.minCol + 1
	start := ur.minRow
	columns := make([]string, width)
	if opts.Header {
		raw := make([]string, width)
		for i := range raw {
			raw[i] = cell(ur.minRow, ur.minCol+i)
		}
		columns = columnNames(raw)
		start++
	} else {
		for i := range columns {
			columns[i] = positionalName(i)
		}
	}

	var records []table.Record
	for r := start; r <= ur.maxRow; r++ {
		values := make([]string, width)
		for i := range values {
			values[i] = cell(r, ur.minCol+i)
		}
		if opts.SkipBlank && isBlank(values) {
			continue
		}

		rec := make(table.Record, width)
		for i, v := range values {
			rec[i] = table.Field{Key: columns[i], Value: cellValue(f, sheet, r, ur.minCol+i, v)}
		}
		records = append(records, rec)
	}

	return &table.Table{
		Columns: columns,
		Rows:    records,
		Range:   ur.String(),
	}, nil
}

// cellValue returns boolean cells as native bools and everything else as the
// formatted text excelize reports.
func cellValue(f *excelize.File, sheet string, r, c int, v string) any {
	if v != "TRUE" && v != "FALSE" {
		return v
	}
	name, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return v
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil || typ != excelize.CellTypeBool {
		return v
	}
	return v == "TRUE"
}
