//go:build !duckdb

package duckdb

import (
	"context"
	"errors"

	"github.com/sadopc/datagate/internal/adapter"
)

var errDisabled = errors.New("DuckDB support not compiled in. Rebuild with -tags duckdb")

// Enabled reports whether this build includes the DuckDB driver.
const Enabled = false

// Adapter stands in for DuckDB in builds without the duckdb tag. Every
// Connect fails.
type Adapter struct{}

// New returns the disabled DuckDB adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Engine() adapter.Engine { return adapter.DuckDB }
func (a *Adapter) DefaultPort() int       { return 0 }

func (a *Adapter) Connect(_ context.Context, _ adapter.Config) (adapter.Connection, error) {
	return nil, errDisabled
}
