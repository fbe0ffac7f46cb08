package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sadopc/datagate/internal/registry"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message     string   `json:"message"`
	RequestID   string   `json:"requestId,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// httpError is a failure detected by a handler before any registry call.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func notFound(message string) error {
	return &httpError{status: http.StatusNotFound, message: message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (s *Server) okMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := &errorBody{
		Message:   err.Error(),
		RequestID: requestIDFromContext(r.Context()),
	}
	var tnf *registry.TableNotFoundError
	if errors.As(err, &tnf) {
		body.Suggestions = tnf.Suggestions
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", body.RequestID, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "request_id", body.RequestID, "status", status, "error", err)
	}
	writeJSON(w, status, envelope{Success: false, Error: body})
}

// statusFor maps registry errors to HTTP status codes.
func statusFor(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.status
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	switch {
	case registry.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrConnectFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, registry.ErrParseFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrUnsupportedEngine),
		errors.Is(err, registry.ErrUnsupportedFormat),
		errors.Is(err, registry.ErrInvalidArgument),
		errors.Is(err, registry.ErrUnsupportedOperation),
		errors.Is(err, registry.ErrQueryFailure):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
