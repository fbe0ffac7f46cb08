package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/sadopc/datagate/internal/table"
)

type jsonParser struct{}

func (jsonParser) Kind() Kind { return JSON }

// Parse accepts a top-level array of objects or a single object. Objects are
// decoded token by token so key order survives into the records; numbers are
// kept as json.Number.
func (jsonParser) Parse(data []byte, _ Options) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New("json: input is not valid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if errors.Is(err, io.EOF) {
		return nil, errors.New("json: empty document")
	}
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("json: unexpected data after top-level value")
	}

	var rows []table.Record
	isArray := false
	switch val := v.(type) {
	case []any:
		isArray = true
		rows = make([]table.Record, 0, len(val))
		for i, elem := range val {
			rec, ok := elem.(table.Record)
			if !ok {
				return nil, fmt.Errorf("json: array element %d is not an object", i)
			}
			rows = append(rows, rec)
		}
	case table.Record:
		rows = []table.Record{val}
	default:
		return nil, errors.New("json: document must be an object or an array of objects")
	}

	columns := []string{}
	if len(rows) > 0 {
		columns = rows[0].Keys()
	}

	originalType := "object"
	if isArray {
		originalType = "array"
	}

	return &Result{
		Kind:  JSON,
		Table: &table.Table{Columns: columns, Rows: rows},
		Metadata: map[string]any{
			"isArray":      isArray,
			"originalType": originalType,
		},
	}, nil
}

// decodeValue reads one complete JSON value. Objects become table.Record,
// arrays []any, scalars whatever the decoder yields for them.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		rec := table.Record{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T, not a string", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			rec = append(rec, table.Field{Key: key, Value: val})
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		return rec, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %q", delim)
}

// unexpectedEOF keeps a truncated document from reading as an empty one.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
