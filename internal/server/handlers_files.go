package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sadopc/datagate/internal/export"
	"github.com/sadopc/datagate/internal/format"
	"github.com/sadopc/datagate/internal/registry"
)

// multipartMemory is the part of an upload kept in memory; the rest spills
// to temporary files.
const multipartMemory = 8 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, &httpError{status: http.StatusRequestEntityTooLarge, message: "File too large"})
			return
		}
		s.fail(w, r, badRequest("Invalid upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, badRequest("No file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	opts, err := uploadOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id, err := s.files.ParseNamed(data, header.Filename, r.FormValue("format"), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.files.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, struct {
		FileID string `json:"fileId"`
		registry.DatasetInfo
	}{id, info})
}

// uploadOptions reads the delimiter, headers and skipEmpty form fields.
// Only the literal "false" disables headers or blank-row skipping.
func uploadOptions(r *http.Request) (format.Options, error) {
	opts := format.DefaultOptions()
	opts.Header = r.FormValue("headers") != "false"
	opts.SkipBlank = r.FormValue("skipEmpty") != "false"

	d, err := format.ParseDelimiter(r.FormValue("delimiter"))
	if err != nil {
		return opts, badRequest("%v", err)
	}
	opts.Delimiter = d
	return opts, nil
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files := s.files.List()
	s.ok(w, map[string]any{
		"files": files,
		"count": len(files),
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	info, err := s.files.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, info)
}

func (s *Server) handleFileData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, err := intQuery(r, "limit", s.opts.DefaultPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit = min(limit, s.opts.MaxPageSize)

	page, err := s.files.GetData(id, r.URL.Query().Get("sheet"), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, struct {
		FileID string `json:"fileId"`
		*registry.Page
	}{id, page})
}

func (s *Server) handleFileSchema(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sheet := r.URL.Query().Get("sheet")

	schema, err := s.files.Schema(id, sheet)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.files.GetData(id, sheet, 0, 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, map[string]any{
		"fileId":   id,
		"sheet":    page.Sheet,
		"schema":   schema,
		"columns":  page.Columns,
		"rowCount": page.RowCount,
	})
}

// handleFileExport downloads every row of a dataset (or one sheet) as CSV
// or JSON.
func (s *Server) handleFileExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	name := q.Get("format")
	if name == "" {
		name = string(export.CSV)
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		s.fail(w, r, badRequest("%v", err))
		return
	}

	info, err := s.files.Get(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sheet := q.Get("sheet")
	all, err := s.files.GetData(id, sheet, 0, 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.files.GetData(id, sheet, 0, all.RowCount)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if f == export.JSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": exportName(info.Filename, id, page.Sheet, f),
	}))
	if err := export.Write(w, f, page.Columns, page.Rows); err != nil {
		s.logger.Warn("export failed", "id", id, "error", err)
	}
}

// exportName builds the download filename from the uploaded name, falling
// back to the dataset id.
func exportName(filename, id, sheet string, f export.Format) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = id
	}
	if sheet != "" {
		base = fmt.Sprintf("%s-%s", base, sheet)
	}
	return base + "." + string(f)
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	if !s.files.Remove(chi.URLParam(r, "id")) {
		s.fail(w, r, notFound("File not found"))
		return
	}
	s.okMessage(w, "File removed successfully")
}
