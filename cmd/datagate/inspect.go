package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/datagate/internal/export"
	"github.com/sadopc/datagate/internal/format"
	"github.com/sadopc/datagate/internal/infer"
	"github.com/sadopc/datagate/internal/registry"
	"github.com/sadopc/datagate/internal/theme"
)

// maxCellWidth truncates long cell values in the preview.
const maxCellWidth = 40

func newInspectCmd() *cobra.Command {
	var (
		formatFlag    string
		delimiterFlag string
		noHeaderFlag  bool
		keepBlankFlag bool
		sheetFlag     string
		limitFlag     int
		themeFlag     string
		outputFlag    string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Parse a file and print its inferred schema and first rows",
		Long: `inspect parses a CSV, Excel or JSON file the same way an upload is
parsed and prints the inferred schema with a preview of the rows.

With --output csv or --output json the selected rows are written in that
format instead, which converts between the supported file formats.
A --limit of 0 selects every row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			opts := format.DefaultOptions()
			opts.Header = !noHeaderFlag
			opts.SkipBlank = !keepBlankFlag
			if opts.Delimiter, err = format.ParseDelimiter(delimiterFlag); err != nil {
				return err
			}
			if limitFlag < 0 {
				return fmt.Errorf("--limit must not be negative, got %d", limitFlag)
			}
			var out export.Format
			if outputFlag != "" && outputFlag != "table" {
				if out, err = export.ParseFormat(outputFlag); err != nil {
					return err
				}
			}

			files := registry.NewDatasets(nil)
			id, err := files.ParseNamed(data, filepath.Base(path), formatFlag, opts)
			if err != nil {
				return err
			}
			info, err := files.Get(id)
			if err != nil {
				return err
			}
			limit := limitFlag
			if limit == 0 {
				all, err := files.GetData(id, sheetFlag, 0, 0)
				if err != nil {
					return err
				}
				limit = all.RowCount
			}
			page, err := files.GetData(id, sheetFlag, 0, limit)
			if err != nil {
				return err
			}
			if out != "" {
				return export.Write(cmd.OutOrStdout(), out, page.Columns, page.Rows)
			}
			schema, err := files.Schema(id, sheetFlag)
			if err != nil {
				return err
			}

			renderInspect(cmd.OutOrStdout(), theme.Get(themeFlag), info, page, schema)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "File format (csv, xlsx, json); default from extension")
	cmd.Flags().StringVarP(&delimiterFlag, "delimiter", "d", "", `CSV delimiter, one character or "tab"`)
	cmd.Flags().BoolVar(&noHeaderFlag, "no-header", false, "Treat the first row as data")
	cmd.Flags().BoolVar(&keepBlankFlag, "keep-blank", false, "Keep rows whose fields are all empty")
	cmd.Flags().StringVarP(&sheetFlag, "sheet", "s", "", "Sheet to inspect (spreadsheets only)")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 10, "Number of rows to preview, 0 for all")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "table", "Output format (table, csv, json)")
	cmd.Flags().StringVar(&themeFlag, "theme", "default", "Output theme (default, light, monokai, plain)")
	return cmd
}

func renderInspect(w io.Writer, th *theme.Theme, info registry.DatasetInfo, page *registry.Page, schema infer.Schema) {
	fmt.Fprintf(w, "%s  %s  %s\n",
		th.Title.Render(info.Filename),
		th.Label.Render(string(info.Format)),
		th.Value.Render(fmt.Sprintf("%d rows", page.RowCount)),
	)
	if len(info.SheetNames) > 0 {
		names := make([]string, len(info.SheetNames))
		for i, n := range info.SheetNames {
			if n == page.Sheet {
				n += "*"
			}
			names[i] = n
		}
		fmt.Fprintf(w, "%s %s\n", th.Label.Render("sheets:"), strings.Join(names, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, th.Title.Render("Schema"))
	fmt.Fprintln(w, schemaTable(th, schema))

	if len(page.Columns) == 0 {
		fmt.Fprintln(w, th.MutedText.Render("(no columns)"))
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, th.Title.Render(fmt.Sprintf("Preview (%d of %d rows)", len(page.Rows), page.RowCount)))
	fmt.Fprintln(w, previewTable(th, page))
}

func newTable(th *theme.Theme) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.Border)
}

func schemaTable(th *theme.Theme, schema infer.Schema) *table.Table {
	t := newTable(th).
		Headers("column", "type", "nullable").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return th.Header
			case col == 1:
				return th.TypeStyle(schema[row].Type).Padding(0, 1)
			}
			return th.Cell
		})
	for _, c := range schema {
		t.Row(c.Name, string(c.Type), strconv.FormatBool(c.Nullable))
	}
	return t
}

func previewTable(th *theme.Theme, page *registry.Page) *table.Table {
	rows := make([][]string, len(page.Rows))
	nulls := make([][]bool, len(page.Rows))
	for i, rec := range page.Rows {
		rows[i] = make([]string, len(page.Columns))
		nulls[i] = make([]bool, len(page.Columns))
		for j, col := range page.Columns {
			v, ok := rec.Get(col)
			if !ok || v == nil {
				rows[i][j] = "NULL"
				nulls[i][j] = true
				continue
			}
			rows[i][j] = cellText(v)
		}
	}

	return newTable(th).
		Headers(page.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return th.Header
			case nulls[row][col]:
				return th.Null
			}
			return th.Cell
		})
}

// cellText formats a value for the terminal, truncating long text.
func cellText(v any) string {
	s := strings.ReplaceAll(export.Text(v), "\n", " ")
	if r := []rune(s); len(r) > maxCellWidth {
		s = string(r[:maxCellWidth-1]) + "…"
	}
	return s
}
