package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sadopc/datagate/internal/adapter"
)

type connectRequest struct {
	Type   string          `json:"type"`
	Config *adapter.Config `json:"config"`
}

type queryRequest struct {
	Query  string `json:"query"`
	Params []any  `json:"params"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		s.fail(w, r, badRequest("Database type is required"))
		return
	}
	if req.Config == nil {
		s.fail(w, r, badRequest("Database configuration is required"))
		return
	}

	id, err := s.conns.Open(r.Context(), req.Type, *req.Config)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.conns.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"connectionId": info.ID,
		"type":         info.Engine,
		"database":     info.Database,
		"message":      "Connected successfully",
	})
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns := s.conns.List()
	s.ok(w, map[string]any{
		"connections": conns,
		"count":       len(conns),
	})
}

func (s *Server) handleCloseConnection(w http.ResponseWriter, r *http.Request) {
	if !s.conns.Close(chi.URLParam(r, "id")) {
		s.fail(w, r, notFound("Connection not found"))
		return
	}
	s.okMessage(w, "Connection closed successfully")
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tables, err := s.conns.ListTables(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"connectionId": id,
		"tables":       tables,
		"count":        len(tables),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.fail(w, r, badRequest("Query is required"))
		return
	}

	res, err := s.conns.Query(r.Context(), id, req.Query, normalizeParams(req.Params))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"connectionId": id,
		"query":        req.Query,
		"result":       res,
	})
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := pathParam(r, "table")

	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit = s.conns.PageLimit(limit)

	res, err := s.conns.TableData(r.Context(), id, name, limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"connectionId": id,
		"table":        name,
		"columns":      res.Columns,
		"rows":         res.Rows,
		"count":        res.RowCount,
		"pagination": map[string]int{
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := pathParam(r, "table")

	cols, err := s.conns.Describe(r.Context(), id, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"connectionId": id,
		"table":        name,
		"columns":      cols,
	})
}

// decodeJSON reads a bounded JSON body. Numbers are kept as json.Number so
// statement parameters do not lose integer precision.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return badRequest("Request body is required")
		}
		return badRequest("Invalid JSON body: %v", err)
	}
	return nil
}

// normalizeParams converts json.Number values into int64 when integral and
// float64 otherwise, recursing into arrays and objects.
func normalizeParams(params []any) []any {
	if params == nil {
		return nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = normalizeParam(p)
	}
	return out
}

func normalizeParam(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		return normalizeParams(val)
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = normalizeParam(e)
		}
		return m
	}
	return v
}

// intQuery parses an integer query parameter, returning def when absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

// pathParam returns a URL parameter, unescaping it when the request path
// carried escapes chi did not decode.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
