package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/form"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/report"
)

// handleListRecords returns history, filtered by ?search=.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// createRequest optionally fills the draft before saving, for API clients
// that do not drive the form field by field.
type createRequest struct {
	Mode   string         `json:"mode"`
	Fields map[string]any `json:"fields"`
}

type createResponse struct {
	Record    record.SupportRecord `json:"record"`
	Summary   string               `json:"summary"`
	Clipboard string               `json:"clipboard"`
}

// handleCreateRecord saves the caller's draft. The copied summary is
// returned so the page can write it to the browser clipboard.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	canEscalate := identity(r).CanEscalate()
	var resp createResponse
	err := s.sessions.workspace(w, r).with(func(f *form.Form) error {
		// Body values only stick if the record is saved.
		saved := f.Clone()
		rec, text, clip, err := s.createFromRequest(r, f, req, canEscalate)
		if err != nil {
			f.Restore(saved)
			return err
		}
		resp = createResponse{Record: rec, Summary: text, Clipboard: clip}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// createFromRequest applies the request's mode and fields to f and saves it.
func (s *Server) createFromRequest(r *http.Request, f *form.Form, req createRequest, canEscalate bool) (record.SupportRecord, string, string, error) {
	if req.Mode != "" {
		if err := switchMode(f, req.Mode, canEscalate); err != nil {
			return record.SupportRecord{}, "", "", err
		}
	}
	for name, value := range req.Fields {
		if err := f.SetField(name, value); err != nil {
			return record.SupportRecord{}, "", "", core.Invalid("create", "VAL003", fmt.Sprintf("Campo inválido: %s.", name))
		}
	}

	var clip core.ClipboardBuffer
	rec, text, err := s.service.Create(r.Context(), f, &clip)
	if err != nil {
		return record.SupportRecord{}, "", "", err
	}
	return rec, text, clip.Text(), nil
}

// handleGetRecord selects a record and returns it with its summary.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, text, err := s.service.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"record":  rec,
		"summary": text,
	})
}

type updateRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// handleUpdateRecord edits one field of a stored record.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.service.Update(r.Context(), id, req.Field, req.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.service.Get(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type toggleRequest struct {
	Current string `json:"current"`
}

// handleToggleStatus flips a record between Aberto and Fechado.
func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if req.Current == "" {
		if rec, err := s.service.Get(id); err == nil {
			req.Current = rec.Status
		}
	}
	next, err := s.service.ToggleStatus(r.Context(), id, req.Current)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": next})
}

// handleDeleteRecord removes a record. Admin only.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDashboard returns the escalation dashboard and its stats.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	records, stats, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"stats":   stats,
	})
}

// handleExport streams a CSV or XLSX report as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := report.ParseFilter(q.Get("filter"))
	if err != nil {
		s.respondError(w, r, core.Invalid("export", "EXP002", fmt.Sprintf("Filtro de relatório inválido: %q.", q.Get("filter"))))
		return
	}

	out, err := s.service.Export(r.Context(), filter, q.Get("format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("X-Report-Rows", strconv.Itoa(out.Rows))
	_, _ = w.Write(out.Data)
}

// handleAuditLog returns recent audit entries. Admin only.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := s.service.AuditLog(r.Context(), core.AuditFilter{
		Action: core.AuditAction(q.Get("action")),
		Limit:  limit,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
