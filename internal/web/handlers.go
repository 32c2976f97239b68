package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marketlens/ingest/internal/importer"
	"github.com/marketlens/ingest/internal/logging"
	"github.com/marketlens/ingest/internal/schema"
	"github.com/marketlens/ingest/internal/web/middleware"
)

// TemplateResponse describes one importable entity kind: the exact header
// set a file must carry, a human-readable description per column, and a
// valid example row.
type TemplateResponse struct {
	Kind            string            `json:"kind"`
	RequiredHeaders []string          `json:"required_headers"`
	DataTypes       map[string]string `json:"data_types"`
	ExampleRow      string            `json:"example_row"`
}

// handleListTemplates returns the template catalog for every registered kind.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := schema.All()

	out := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		types := make(map[string]string, len(t.Fields))
		for _, f := range t.Fields {
			types[f.Name] = f.Description
		}
		out = append(out, TemplateResponse{
			Kind:            string(t.Kind),
			RequiredHeaders: t.Columns(),
			DataTypes:       types,
			ExampleRow:      t.ExampleRow,
		})
	}

	writeJSON(w, out)
}

// handleSample serves a downloadable sample CSV for one kind, consisting of
// the header row and a single valid example row.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	kind := schema.Kind(chi.URLParam(r, "kind"))

	data, err := schema.Sample(kind)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown import kind %q", kind))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, schema.SampleFilename(kind)))
	w.Write(data)
}

// handleImport accepts a multipart CSV upload and runs it through the
// import pipeline. The whole file is processed in one request; the
// response is either a per-row report or a request-level error.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	kind := schema.Kind(chi.URLParam(r, "kind"))
	if _, ok := schema.Get(kind); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown import kind %q", kind))
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d byte limit", maxSize))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "only .csv files are accepted")
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	ident := importer.Identity{Subject: middleware.Subject(r.Context())}

	report, err := s.importer.Import(ctx, ident, kind, file, header.Size)
	if err != nil {
		s.respondImportError(w, r, err)
		return
	}

	writeJSON(w, report)
}

// respondImportError maps pipeline failures to HTTP status codes.
// Batch-level rejections are client errors; everything else is a 500.
func (s *Server) respondImportError(w http.ResponseWriter, r *http.Request, err error) {
	var fatalErr *importer.FatalError
	if errors.As(err, &fatalErr) {
		status := http.StatusBadRequest
		if fatalErr.Kind == importer.KindTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, fatalErr.Message)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusRequestTimeout, "import timed out")
		return
	}
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to write.
		return
	}

	logging.FromContext(r.Context()).Error("import failed", "error", err)
	writeError(w, http.StatusInternalServerError, "import failed")
}

// handleHealth reports liveness and store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}

	writeJSON(w, map[string]string{"status": "ok"})
}

// multipartOverhead covers boundary markers and part headers so a file at
// exactly the size limit still parses.
const multipartOverhead = 16 * 1024
