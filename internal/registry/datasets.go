package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/datagate/internal/format"
	"github.com/sadopc/datagate/internal/infer"
	"github.com/sadopc/datagate/internal/table"
)

const datasetIDPrefix = "file_"

// SheetInfo describes one sheet of a spreadsheet dataset.
type SheetInfo struct {
	Name     string   `json:"name"`
	Range    string   `json:"range,omitempty"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"rowCount"`
}

// DatasetInfo is the metadata of a parsed file, without its rows.
type DatasetInfo struct {
	ID           string         `json:"id"`
	Format       format.Kind    `json:"type"`
	Filename     string         `json:"filename,omitempty"`
	Size         int            `json:"size"`
	ParsedAt     time.Time      `json:"parsedAt"`
	RowCount     int            `json:"rowCount"`
	Columns      []string       `json:"columns,omitempty"`
	SheetNames   []string       `json:"sheetNames,omitempty"`
	DefaultSheet string         `json:"defaultSheet,omitempty"`
	Sheets       []SheetInfo    `json:"sheets,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// DatasetSummary is one line of List.
type DatasetSummary struct {
	ID       string      `json:"id"`
	Format   format.Kind `json:"type"`
	Filename string      `json:"filename,omitempty"`
	ParsedAt time.Time   `json:"parsedAt"`
	RowCount int         `json:"rowCount"`
}

// Page is one slice of a dataset's rows.
type Page struct {
	Sheet    string         `json:"sheet,omitempty"`
	Columns  []string       `json:"columns"`
	Rows     []table.Record `json:"rows"`
	RowCount int            `json:"rowCount"`
	Offset   int            `json:"offset"`
	Limit    int            `json:"limit"`
	HasMore  bool           `json:"hasMore"`
}

type dataset struct {
	id       string
	filename string
	size     int
	parsedAt time.Time
	result   *format.Result
}

// Datasets holds parsed files in memory, keyed by opaque ids. Datasets never
// change after Parse, so reads only take the map lock.
type Datasets struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*dataset
	order   []string
}

// NewDatasets returns an empty registry. A nil logger discards output.
func NewDatasets(logger *slog.Logger) *Datasets {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Datasets{
		logger:  logger,
		entries: make(map[string]*dataset),
	}
}

// Parse parses data as the named format and stores the result.
func (d *Datasets) Parse(data []byte, formatName string, opts format.Options) (string, error) {
	return d.ParseNamed(data, "", formatName, opts)
}

// ParseNamed is Parse that also records the uploaded file's name. An empty
// formatName is resolved from the filename's extension.
func (d *Datasets) ParseNamed(data []byte, filename, formatName string, opts format.Options) (string, error) {
	var (
		kind format.Kind
		err  error
	)
	if formatName == "" && filename != "" {
		kind, err = format.FromFilename(filename)
	} else {
		kind, err = format.ParseKind(formatName)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	start := time.Now()
	res, err := format.Parse(kind, data, opts)
	if err != nil {
		d.logger.Debug("parse failed", "format", kind, "filename", filename, "error", err)
		return "", &ParseError{Format: string(kind), Cause: err}
	}

	ds := &dataset{
		id:       datasetIDPrefix + uuid.NewString(),
		filename: filename,
		size:     len(data),
		parsedAt: time.Now().UTC(),
		result:   res,
	}

	d.mu.Lock()
	d.entries[ds.id] = ds
	d.order = append(d.order, ds.id)
	d.mu.Unlock()

	d.logger.Info("file parsed",
		"id", ds.id,
		"format", kind,
		"filename", filename,
		"bytes", ds.size,
		"rows", res.RowCount(),
		"duration", time.Since(start))
	return ds.id, nil
}

func (d *Datasets) lookup(id string) (*dataset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ds, ok := d.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return ds, nil
}

// Get returns the metadata of a parsed file.
func (d *Datasets) Get(id string) (DatasetInfo, error) {
	ds, err := d.lookup(id)
	if err != nil {
		return DatasetInfo{}, err
	}

	res := ds.result
	info := DatasetInfo{
		ID:       ds.id,
		Format:   res.Kind,
		Filename: ds.filename,
		Size:     ds.size,
		ParsedAt: ds.parsedAt,
		RowCount: res.RowCount(),
		Metadata: res.Metadata,
	}
	if !res.IsSpreadsheet() {
		if res.Table != nil {
			info.Columns = res.Table.ColumnNames()
		}
		return info, nil
	}

	info.SheetNames = res.SheetNames
	info.DefaultSheet = res.DefaultSheet
	info.Sheets = make([]SheetInfo, 0, len(res.SheetNames))
	for _, name := range res.SheetNames {
		t := res.Sheets[name]
		info.Sheets = append(info.Sheets, SheetInfo{
			Name:     name,
			Range:    t.Range,
			Columns:  t.ColumnNames(),
			RowCount: t.RowCount(),
		})
	}
	return info, nil
}

// sheet returns the table for a sheet name. The name is ignored for formats
// without sheets; empty selects the default sheet.
func (ds *dataset) sheet(name string) (*table.Table, string, error) {
	res := ds.result
	t, ok := res.Sheet(name)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q in %s", ErrSheetNotFound, name, ds.id)
	}
	if !res.IsSpreadsheet() {
		return t, "", nil
	}
	if name == "" {
		name = res.DefaultSheet
	}
	return t, name, nil
}

// GetData returns rows [offset, offset+limit) of a dataset's table.
func (d *Datasets) GetData(id, sheet string, offset, limit int) (*Page, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidArgument, offset)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", ErrInvalidArgument, limit)
	}

	ds, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	t, name, err := ds.sheet(sheet)
	if err != nil {
		return nil, err
	}

	total := t.RowCount()
	lo := min(offset, total)
	hi := lo + min(limit, total-lo)
	rows := slices.Clip(t.Rows[lo:hi])
	if rows == nil {
		rows = []table.Record{}
	}
	cols := t.ColumnNames()
	if cols == nil {
		cols = []string{}
	}
	return &Page{
		Sheet:    name,
		Columns:  cols,
		Rows:     rows,
		RowCount: total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  offset < total && limit < total-offset,
	}, nil
}

// Schema infers column types of a dataset's table from its first row.
func (d *Datasets) Schema(id, sheet string) (infer.Schema, error) {
	ds, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	t, _, err := ds.sheet(sheet)
	if err != nil {
		return nil, err
	}
	return infer.FromTable(t), nil
}

// List returns every parsed file in creation order.
func (d *Datasets) List() []DatasetSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]DatasetSummary, 0, len(d.order))
	for _, id := range d.order {
		ds := d.entries[id]
		out = append(out, DatasetSummary{
			ID:       ds.id,
			Format:   ds.result.Kind,
			Filename: ds.filename,
			ParsedAt: ds.parsedAt,
			RowCount: ds.result.RowCount(),
		})
	}
	return out
}

// Remove deletes a parsed file and reports whether it existed.
func (d *Datasets) Remove(id string) bool {
	d.mu.Lock()
	_, ok := d.entries[id]
	if ok {
		delete(d.entries, id)
		if i := slices.Index(d.order, id); i >= 0 {
			d.order = slices.Delete(d.order, i, i+1)
		}
	}
	d.mu.Unlock()

	if ok {
		d.logger.Info("file removed", "id", id)
	}
	return ok
}
