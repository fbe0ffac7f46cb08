// Package format turns uploaded file bytes into normalized tables.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind identifies a supported file format.
type Kind string

const (
	CSV  Kind = "csv"
	XLSX Kind = "xlsx"
	JSON Kind = "json"
)

// ErrUnknownKind is returned by ParseKind for names no parser handles.
var ErrUnknownKind = errors.New("unknown file format")

// Kinds lists every supported format.
func Kinds() []Kind {
	return []Kind{CSV, XLSX, JSON}
}

// ParseKind resolves a format name. Case and a leading dot are ignored so
// file extensions can be passed as-is.
func ParseKind(name string) (Kind, error) {
	n := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	switch n {
	case "csv":
		return CSV, nil
	case "xlsx", "xls", "xlsm", "excel", "spreadsheet":
		return XLSX, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// FromFilename resolves the format from a filename's extension.
func FromFilename(name string) (Kind, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownKind, name)
	}
	return ParseKind(ext)
}

// Options controls parsing. The zero value is not the default; use
// DefaultOptions.
type Options struct {
	// Delimiter separates CSV fields.
	Delimiter rune
	// Header treats the first non-blank row as column names.
	Header bool
	// SkipBlank drops rows whose fields are all empty.
	SkipBlank bool
}

// DefaultOptions returns comma-delimited, header-first, blank-skipping options.
func DefaultOptions() Options {
	return Options{
		Delimiter: ',',
		Header:    true,
		SkipBlank: true,
	}
}

// ParseDelimiter resolves a user-supplied CSV delimiter. An empty string
// selects the comma; `\t` and "tab" select a tab.
func ParseDelimiter(s string) (rune, error) {
	switch {
	case s == "":
		return ',', nil
	case s == `\t` || strings.EqualFold(s, "tab"):
		return '\t', nil
	case utf8.RuneCountInString(s) == 1:
		r, _ := utf8.DecodeRuneInString(s)
		if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
			return 0, fmt.Errorf("invalid delimiter %q", s)
		}
		return r, nil
	}
	return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
}

// Parser converts raw bytes of one format into a Result.
type Parser interface {
	Kind() Kind
	Parse(data []byte, opts Options) (*Result, error)
}

// ParserFor returns the parser for k.
func ParserFor(k Kind) (Parser, error) {
	switch k {
	case CSV:
		return csvParser{}, nil
	case XLSX:
		return xlsxParser{}, nil
	case JSON:
		return jsonParser{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

// Parse parses data as format k.
func Parse(k Kind, data []byte, opts Options) (*Result, error) {
	p, err := ParserFor(k)
	if err != nil {
		return nil, err
	}
	return p.Parse(data, opts)
}
