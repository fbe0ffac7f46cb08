package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sadopc/datagate/internal/adapter"
)

var (
	ErrUnsupportedEngine    = errors.New("unsupported database engine")
	ErrUnsupportedFormat    = errors.New("unsupported file format")
	ErrConnectFailure       = errors.New("failed to connect")
	ErrParseFailure         = errors.New("failed to parse file")
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrDatasetNotFound      = errors.New("parsed file not found")
	ErrSheetNotFound        = errors.New("sheet not found")
	ErrUnsupportedOperation = errors.New("operation not supported")
	ErrTableNotFound        = errors.New("table not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrQueryFailure         = errors.New("query failed")
)

// ConnectError is returned when an adapter cannot open a connection.
type ConnectError struct {
	Engine adapter.Engine
	Cause  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Engine, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// Is reports ErrConnectFailure as well as anything the cause matches.
func (e *ConnectError) Is(target error) bool {
	return target == ErrConnectFailure
}

// ParseError is returned when a format adapter rejects its input.
type ParseError struct {
	Format string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Format, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

// QueryError is returned when the engine rejects a statement.
type QueryError struct {
	ConnectionID string
	Cause        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed on %s: %v", e.ConnectionID, e.Cause)
}

func (e *QueryError) Unwrap() error { return e.Cause }

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailure
}

// TableNotFoundError names the missing table and the closest existing ones.
type TableNotFoundError struct {
	Table       string
	Suggestions []string
}

func (e *TableNotFoundError) Error() string {
	msg := fmt.Sprintf("table %q not found", e.Table)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e *TableNotFoundError) Is(target error) bool {
	return target == ErrTableNotFound
}

// IsNotFound reports whether err is one of the registries' not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConnectionNotFound) ||
		errors.Is(err, ErrDatasetNotFound) ||
		errors.Is(err, ErrSheetNotFound) ||
		errors.Is(err, ErrTableNotFound)
}
