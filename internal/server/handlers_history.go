package server

import (
	"net/http"

	"github.com/sadopc/datagate/internal/history"
)

var errHistoryDisabled = &httpError{status: http.StatusNotFound, message: "Query history is disabled"}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		s.fail(w, r, errHistoryDisabled)
		return
	}
	limit, err := intQuery(r, "limit", history.DefaultLimit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit < 0 {
		s.fail(w, r, badRequest("limit must be >= 0, got %d", limit))
		return
	}

	q := r.URL.Query()
	entries, err := s.opts.History.Search(r.Context(), history.Filter{
		ConnectionID: q.Get("connectionId"),
		Contains:     q.Get("q"),
		Limit:        min(limit, s.opts.MaxPageSize),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		s.fail(w, r, errHistoryDisabled)
		return
	}
	n, err := s.opts.History.Clear(r.Context(), r.URL.Query().Get("connectionId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"removed": n,
		"message": "History cleared",
	})
}
