package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/datagate/internal/adapter"
	"github.com/sadopc/datagate/internal/audit"
	"github.com/sadopc/datagate/internal/history"
	"github.com/sadopc/datagate/internal/schema"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000

	connectionIDPrefix = "conn_"
	maxSuggestions     = 3
)

// ConnectionInfo is the public view of an open connection.
type ConnectionInfo struct {
	ID       string         `json:"id"`
	Engine   adapter.Engine `json:"type"`
	Database string         `json:"database"`
	OpenedAt time.Time      `json:"connectedAt"`
}

// ConnectionsOptions configures a Connections registry. Zero values select
// the defaults.
type ConnectionsOptions struct {
	Logger          *slog.Logger
	Audit           *audit.Logger
	History         *history.Store
	DefaultPageSize int
	MaxPageSize     int
}

// Connections holds the open database connections of the process, keyed by
// opaque ids. Each connection has its own lock so calls on one connection do
// not wait on another, and Close waits for calls already in flight.
type Connections struct {
	adapters map[adapter.Engine]adapter.Adapter
	logger   *slog.Logger
	audit    *audit.Logger
	history  *history.Store

	defaultPage int
	maxPage     int

	mu      sync.RWMutex
	entries map[string]*connEntry
	order   []string
}

type connEntry struct {
	mu     sync.RWMutex
	info   ConnectionInfo
	conn   adapter.Connection
	closed bool
}

// NewConnections returns an empty registry that opens connections with the
// given adapters. A later adapter for the same engine replaces an earlier one.
func NewConnections(opts ConnectionsOptions, adapters ...adapter.Adapter) *Connections {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxPage := opts.MaxPageSize
	if maxPage <= 0 {
		maxPage = MaxPageSize
	}
	defaultPage := opts.DefaultPageSize
	if defaultPage <= 0 {
		defaultPage = DefaultPageSize
	}
	defaultPage = min(defaultPage, maxPage)

	byEngine := make(map[adapter.Engine]adapter.Adapter, len(adapters))
	for _, a := range adapters {
		byEngine[a.Engine()] = a
	}

	return &Connections{
		adapters:    byEngine,
		logger:      logger,
		audit:       opts.Audit,
		history:     opts.History,
		defaultPage: defaultPage,
		maxPage:     maxPage,
		entries:     make(map[string]*connEntry),
	}
}

// Engines returns the engines this registry can open, sorted by name.
func (c *Connections) Engines() []adapter.Engine {
	engines := make([]adapter.Engine, 0, len(c.adapters))
	for e := range c.adapters {
		engines = append(engines, e)
	}
	slices.Sort(engines)
	return engines
}

// Open connects to an engine and registers the connection. Engine names are
// matched case-insensitively and accept common aliases.
func (c *Connections) Open(ctx context.Context, engine string, cfg adapter.Config) (string, error) {
	e, err := adapter.ParseEngine(engine)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}
	a, ok := c.adapters[e]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}

	start := time.Now()
	conn, err := a.Connect(ctx, cfg)
	entry := audit.Entry{
		Operation:  audit.OpConnect,
		Engine:     string(e),
		Target:     audit.Target(cfg),
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.IsError, entry.Error = true, err.Error()
		c.audit.Log(entry)
		c.logger.Warn("connect failed", "engine", e, "target", entry.Target, "error", err)
		return "", &ConnectError{Engine: e, Cause: err}
	}

	info := ConnectionInfo{
		ID:       connectionIDPrefix + uuid.NewString(),
		Engine:   e,
		Database: conn.DatabaseName(),
		OpenedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.entries[info.ID] = &connEntry{info: info, conn: conn}
	c.order = append(c.order, info.ID)
	c.mu.Unlock()

	entry.ConnectionID, entry.DatabaseName = info.ID, info.Database
	c.audit.Log(entry)
	c.logger.Info("connection opened", "id", info.ID, "engine", e, "database", info.Database)
	return info.ID, nil
}

// List returns every open connection in creation order.
func (c *Connections) List() []ConnectionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ConnectionInfo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].info)
	}
	return out
}

// Get returns one open connection.
func (c *Connections) Get(id string) (ConnectionInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return ConnectionInfo{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	return e.info, nil
}

// Close removes a connection and releases its handle once in-flight calls on
// it have finished. It reports whether the id was registered. Errors from
// the driver are logged, not returned.
func (c *Connections) Close(id string) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
		if i := slices.Index(c.order, id); i >= 0 {
			c.order = slices.Delete(c.order, i, i+1)
		}
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	c.release(e)
	return true
}

// Shutdown closes every open connection.
func (c *Connections) Shutdown() {
	c.mu.Lock()
	entries := make([]*connEntry, 0, len(c.order))
	for _, id := range c.order {
		entries = append(entries, c.entries[id])
	}
	c.entries = make(map[string]*connEntry)
	c.order = nil
	c.mu.Unlock()

	for _, e := range entries {
		c.release(e)
	}
}

func (c *Connections) release(e *connEntry) {
	e.mu.Lock()
	e.closed = true
	err := e.conn.Close()
	e.mu.Unlock()

	entry := audit.Entry{
		Operation:    audit.OpClose,
		ConnectionID: e.info.ID,
		Engine:       string(e.info.Engine),
		DatabaseName: e.info.Database,
	}
	if err != nil {
		entry.IsError, entry.Error = true, err.Error()
		c.logger.Warn("error closing connection", "id", e.info.ID, "engine", e.info.Engine, "error", err)
	} else {
		c.logger.Info("connection closed", "id", e.info.ID, "engine", e.info.Engine)
	}
	c.audit.Log(entry)
}

// acquire returns the entry for id holding its read lock. The caller must
// call the returned release func.
func (c *Connections) acquire(id string) (*connEntry, func(), error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	return e, e.mu.RUnlock, nil
}

// ListTables returns the user tables (or collections) of a connection.
func (c *Connections) ListTables(ctx context.Context, id string) ([]string, error) {
	e, done, err := c.acquire(id)
	if err != nil {
		return nil, err
	}
	defer done()

	tables, err := e.conn.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables on %s: %w", id, err)
	}
	return tables, nil
}

// Query executes a statement with positional parameters. Document engines
// return ErrUnsupportedOperation.
func (c *Connections) Query(ctx context.Context, id, statement string, params []any) (*adapter.QueryResult, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, fmt.Errorf("%w: empty statement", ErrInvalidArgument)
	}

	e, done, err := c.acquire(id)
	if err != nil {
		return nil, err
	}
	defer done()

	q, ok := e.conn.(adapter.Querier)
	if !ok {
		return nil, fmt.Errorf("%w: %s connections do not execute statements", ErrUnsupportedOperation, e.info.Engine)
	}

	res, err := q.Execute(ctx, statement, params)
	c.record(ctx, e, audit.Entry{Operation: audit.OpQuery, Statement: statement}, res, err)
	if err != nil {
		return nil, &QueryError{ConnectionID: id, Cause: err}
	}
	return res, nil
}

// TableData reads one page of a table. The table must be one ListTables
// reports. A limit outside [1, max page size] is replaced by the default or
// capped; a negative offset is rejected.
func (c *Connections) TableData(ctx context.Context, id, table string, limit, offset int) (*adapter.QueryResult, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0, got %d", ErrInvalidArgument, offset)
	}
	limit = c.PageLimit(limit)

	e, done, err := c.acquire(id)
	if err != nil {
		return nil, err
	}
	defer done()

	r, ok := e.conn.(adapter.TableReader)
	if !ok {
		return nil, fmt.Errorf("%w: %s connections do not read tables", ErrUnsupportedOperation, e.info.Engine)
	}
	if err := checkTable(ctx, e.conn, table); err != nil {
		return nil, err
	}

	res, err := r.ReadTable(ctx, table, limit, offset)
	c.record(ctx, e, audit.Entry{Operation: audit.OpTableData, Table: table}, res, err)
	if err != nil {
		return nil, &QueryError{ConnectionID: id, Cause: err}
	}
	return res, nil
}

// Describe returns column metadata for a table of a relational connection.
func (c *Connections) Describe(ctx context.Context, id, table string) ([]schema.Column, error) {
	e, done, err := c.acquire(id)
	if err != nil {
		return nil, err
	}
	defer done()

	d, ok := e.conn.(adapter.Describer)
	if !ok {
		return nil, fmt.Errorf("%w: %s connections do not describe tables", ErrUnsupportedOperation, e.info.Engine)
	}
	if err := checkTable(ctx, e.conn, table); err != nil {
		return nil, err
	}

	cols, err := d.Columns(ctx, table)
	if err != nil {
		return nil, &QueryError{ConnectionID: id, Cause: err}
	}
	return cols, nil
}

// PageLimit returns the row limit TableData applies for a requested limit:
// the default page size when limit <= 0, capped at the maximum.
func (c *Connections) PageLimit(limit int) int {
	switch {
	case limit <= 0:
		return c.defaultPage
	case limit > c.maxPage:
		return c.maxPage
	}
	return limit
}

// record writes a completed statement or table read to the audit log and
// the query history.
func (c *Connections) record(ctx context.Context, e *connEntry, entry audit.Entry, res *adapter.QueryResult, err error) {
	entry.ConnectionID = e.info.ID
	entry.Engine = string(e.info.Engine)
	entry.DatabaseName = e.info.Database
	if res != nil {
		entry.DurationMS = res.Duration.Milliseconds()
		entry.RowCount = res.RowCount
	}
	if err != nil {
		entry.IsError, entry.Error = true, err.Error()
		c.logger.Debug("statement failed", "id", e.info.ID, "operation", entry.Operation, "error", err)
	}
	c.audit.Log(entry)

	herr := c.history.Add(context.WithoutCancel(ctx), history.Entry{
		ConnectionID: entry.ConnectionID,
		Engine:       entry.Engine,
		DatabaseName: entry.DatabaseName,
		Operation:    string(entry.Operation),
		Statement:    entry.Statement,
		Table:        entry.Table,
		DurationMS:   entry.DurationMS,
		RowCount:     entry.RowCount,
		IsError:      entry.IsError,
		Error:        entry.Error,
	})
	if herr != nil {
		c.logger.Warn("history write failed", "id", e.info.ID, "error", herr)
	}
}

// checkTable verifies that table is listed by the connection.
func checkTable(ctx context.Context, conn adapter.Connection, table string) error {
	if table == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidArgument)
	}
	tables, err := conn.Tables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if slices.Contains(tables, table) {
		return nil
	}
	return &TableNotFoundError{Table: table, Suggestions: suggest(table, tables)}
}

// tableNames implements fuzzy.Source over lower-cased table names.
type tableNames []string

func (t tableNames) String(i int) string { return t[i] }
func (t tableNames) Len() int            { return len(t) }

// suggest returns up to three table names that fuzzily match name, best
// first. Matching is case-insensitive.
func suggest(name string, tables []string) []string {
	if len(tables) == 0 {
		return nil
	}
	lower := make(tableNames, len(tables))
	for i, t := range tables {
		lower[i] = strings.ToLower(t)
	}

	matches := fuzzy.FindFrom(strings.ToLower(name), lower)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	out := make([]string, 0, min(len(matches), maxSuggestions))
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, tables[m.Index])
	}
	return out
}
