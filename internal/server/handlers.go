package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ginjaninja78/report-consolidator/internal/automap"
	"github.com/ginjaninja78/report-consolidator/internal/export"
	"github.com/ginjaninja78/report-consolidator/internal/headers"
	"github.com/ginjaninja78/report-consolidator/internal/types"
	"github.com/ginjaninja78/report-consolidator/internal/validation"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func attachment(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func exportName(title, ext string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, title)
	if base == "" {
		base = "consolidated_report"
	}
	return fmt.Sprintf("%s_%s%s", base, time.Now().Format("20060102_150405"), ext)
}

// =============================================================================
// FORMS AND MAPPING
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"reports": s.store.TotalCount(),
	})
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"forms": s.registry.Tables()})
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["form"]
	table, ok := s.registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown form %q", name))
		return
	}
	writeJSON(w, http.StatusOK, table)
}

type columnsResponse struct {
	Filename string   `json:"filename"`
	Sheets   []string `json:"sheets"`
	Sheet    string   `json:"sheet,omitempty"`
	Columns  []string `json:"columns"`
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !headers.Supported(header.Filename) {
		writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported file type: %s", header.Filename))
		return
	}

	opts := headers.Options{Sheet: r.FormValue("sheet")}
	if v := r.FormValue("header_row"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "header_row must be a non-negative integer")
			return
		}
		opts.HeaderRow = n
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	sheets, err := headers.SheetNamesFromReader(bytes.NewReader(data), header.Filename)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	columns, err := headers.ExtractColumnsFromReader(bytes.NewReader(data), header.Filename, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sheet := opts.Sheet
	if sheet == "" && len(sheets) > 0 {
		sheet = sheets[0]
	}
	s.logger.Debug("extracted %d column(s) from %s", len(columns), header.Filename)
	writeJSON(w, http.StatusOK, columnsResponse{
		Filename: header.Filename,
		Sheets:   sheets,
		Sheet:    sheet,
		Columns:  columns,
	})
}

type autoMapRequest struct {
	Form     string   `json:"form"`
	Filename string   `json:"filename"`
	Columns  []string `json:"columns"`
}

type autoMapResponse struct {
	Form       string                       `json:"form"`
	Mapping    automap.Mapping              `json:"mapping"`
	Mapped     int                          `json:"mapped"`
	Validation *validation.ValidationResult `json:"validation"`
}

func (s *Server) handleAutoMap(w http.ResponseWriter, r *http.Request) {
	var req autoMapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		table automap.AliasTable
		ok    bool
	)
	switch {
	case req.Form != "":
		table, ok = s.registry.Lookup(req.Form)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown form %q", req.Form))
			return
		}
	case req.Filename != "":
		table, ok = s.registry.MatchFile(req.Filename)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no form matches %q", req.Filename))
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "form or filename is required")
		return
	}

	mapping := automap.AutoMap(req.Columns, table)
	writeJSON(w, http.StatusOK, autoMapResponse{
		Form:       table.Name,
		Mapping:    mapping,
		Mapped:     mapping.Mapped(),
		Validation: validation.ValidateMapping(mapping, req.Columns, table),
	})
}

// =============================================================================
// REPORT STORE
// =============================================================================

func (s *Server) handleGetReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Reports())
}

func (s *Server) handleClearReports(w http.ResponseWriter, r *http.Request) {
	s.store.ClearAll()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Summary())
}

func (s *Server) handleFlat(w http.ResponseWriter, r *http.Request) {
	flat := s.store.Flatten()
	if flat == nil {
		flat = []types.FlatReport{}
	}
	writeJSON(w, http.StatusOK, flat)
}

type addReportsResponse struct {
	Category   string                       `json:"category"`
	Submitted  int                          `json:"submitted"`
	Accepted   int                          `json:"accepted"`
	Validation *validation.ValidationResult `json:"validation"`
}

func (s *Server) handleAddReports(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]

	var reports []types.Report
	if err := decodeJSON(r, &reports); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	accepted := s.store.AddReports(category, reports)
	writeJSON(w, http.StatusOK, addReportsResponse{
		Category:   category,
		Submitted:  len(reports),
		Accepted:   accepted,
		Validation: validation.ValidateReports(reports),
	})
}

func (s *Server) handleClearCategory(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	s.store.ClearCategory(category)
	writeJSON(w, http.StatusOK, map[string]any{"cleared": category})
}

// =============================================================================
// EXPORTS
// =============================================================================

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	flat := s.store.Flatten()
	if len(flat) == 0 {
		writeError(w, http.StatusBadRequest, "no reports to export")
		return
	}

	title := r.URL.Query().Get("title")
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, title, flat); err != nil {
		s.logger.Error("workbook export failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	attachment(w, contentTypeXLSX, exportName(title, ".xlsx"), buf.Bytes())
}

type pptRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleExportPPT(w http.ResponseWriter, r *http.Request) {
	if s.ppt == nil {
		writeError(w, http.StatusServiceUnavailable, "backend is not configured")
		return
	}

	var req pptRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	flat := s.store.Flatten()
	if len(flat) == 0 {
		writeError(w, http.StatusBadRequest, "no reports to export")
		return
	}

	data, err := s.ppt.GenerateConsolidatedPPT(r.Context(), export.NewPPTRequest(req.Title, flat, nil))
	if err != nil {
		s.logger.Error("ppt export failed: %v", err)
		var be *export.BackendError
		if errors.As(err, &be) {
			writeError(w, http.StatusBadGateway, be.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "backend request failed")
		return
	}
	attachment(w, contentTypePPTX, exportName(req.Title, ".pptx"), data)
}
