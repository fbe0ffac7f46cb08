// Package server exposes the connection and dataset registries over HTTP.
//
// Every response uses the same envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"message": "..."}}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sadopc/datagate/internal/history"
	"github.com/sadopc/datagate/internal/registry"
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxBodyBytes          = 1 << 20
)

// Options configures a Server. Zero values select the defaults.
type Options struct {
	Version         string
	Logger          *slog.Logger
	History         *history.Store
	RequestTimeout  time.Duration
	MaxUploadBytes  int64
	DefaultPageSize int
	MaxPageSize     int
	CORSOrigins     []string
}

// Server routes HTTP requests to the registries.
type Server struct {
	conns  *registry.Connections
	files  *registry.Datasets
	opts   Options
	logger *slog.Logger
	router chi.Router
}

// New builds the router. Both registries are owned by the caller.
func New(conns *registry.Connections, files *registry.Datasets, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = registry.MaxPageSize
	}
	if opts.DefaultPageSize <= 0 || opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = min(registry.DefaultPageSize, opts.MaxPageSize)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		conns:  conns,
		files:  files,
		opts:   opts,
		logger: opts.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	if s.opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, &httpError{
			status:  http.StatusNotFound,
			message: fmt.Sprintf("Endpoint %s not found", r.URL.Path),
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, &httpError{
			status:  http.StatusMethodNotAllowed,
			message: fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path),
		})
	})

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api/database", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Get("/connections", s.handleListConnections)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Route("/connections/{id}", func(r chi.Router) {
			r.Delete("/", s.handleCloseConnection)
			r.Get("/tables", s.handleListTables)
			r.Post("/query", s.handleQuery)
			r.Get("/tables/{table}/data", s.handleTableData)
			r.Get("/tables/{table}/columns", s.handleColumns)
		})
	})

	r.Route("/api/files", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/parsed", s.handleListFiles)
		r.Route("/parsed/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetFile)
			r.Delete("/", s.handleRemoveFile)
			r.Get("/data", s.handleFileData)
			r.Get("/schema", s.handleFileSchema)
			r.Get("/export", s.handleFileExport)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.ok(w, map[string]any{
		"name":    "datagate",
		"version": s.opts.Version,
		"status":  "running",
		"engines": s.conns.Engines(),
		"endpoints": map[string]map[string]string{
			"Database Operations": {
				"POST /api/database/connect":                               "Connect to database",
				"GET /api/database/connections":                            "List active connections",
				"DELETE /api/database/connections/{id}":                    "Close connection",
				"GET /api/database/connections/{id}/tables":                "List tables",
				"POST /api/database/connections/{id}/query":                "Execute query",
				"GET /api/database/connections/{id}/tables/{name}/data":    "Get table data",
				"GET /api/database/connections/{id}/tables/{name}/columns": "Describe table",
				"GET /api/database/history":                                "Search query history",
				"DELETE /api/database/history":                             "Clear query history",
			},
			"File Operations": {
				"POST /api/files/upload":            "Upload and parse file",
				"GET /api/files/parsed":             "List parsed files",
				"GET /api/files/parsed/{id}":        "Get file info",
				"GET /api/files/parsed/{id}/data":   "Get file data",
				"GET /api/files/parsed/{id}/schema": "Get file schema",
				"GET /api/files/parsed/{id}/export": "Download file as CSV or JSON",
				"DELETE /api/files/parsed/{id}":     "Remove parsed file",
			},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.ok(w, map[string]any{
		"status":      "ok",
		"connections": len(s.conns.List()),
		"files":       len(s.files.List()),
	})
}
