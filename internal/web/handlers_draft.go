package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/form"
	"github.com/JonMunkholm/hwlog/internal/record"
)

// draftResponse is the form state returned by every draft endpoint.
type draftResponse struct {
	Mode    record.Type          `json:"mode"`
	Tab     string               `json:"tab"`
	Draft   record.SupportRecord `json:"draft"`
	Summary string               `json:"summary"`
}

func (s *Server) draftState(f *form.Form) draftResponse {
	d := f.Draft()
	return draftResponse{
		Mode:    f.Mode(),
		Tab:     f.Mode().Tab(),
		Draft:   d,
		Summary: s.service.Summary(d, f.Mode()),
	}
}

// editDraft applies fn to the caller's form and responds with the new state.
func (s *Server) editDraft(w http.ResponseWriter, r *http.Request, fn func(f *form.Form) error) {
	var resp draftResponse
	err := s.sessions.workspace(w, r).with(func(f *form.Form) error {
		if err := fn(f); err != nil {
			return err
		}
		resp = s.draftState(f)
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetDraft returns the current draft, mode and live summary.
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, func(*form.Form) error { return nil })
}

type fieldRequest struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// handleDraftField sets one draft field.
func (s *Server) handleDraftField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.editDraft(w, r, func(f *form.Form) error {
		if err := f.SetField(req.Name, req.Value); err != nil {
			return core.Invalid("set field", "VAL003", fmt.Sprintf("Campo inválido: %s.", req.Name))
		}
		return nil
	})
}

type sicRequest struct {
	Value string `json:"value"`
}

// handleDraftSic toggles one SIC checklist item.
func (s *Server) handleDraftSic(w http.ResponseWriter, r *http.Request) {
	var req sicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.editDraft(w, r, func(f *form.Form) error {
		if err := f.ToggleSetMember(record.FieldSic, req.Value); err != nil {
			return core.Invalid("toggle sic", "VAL003", fmt.Sprintf("Opção SIC inválida: %s.", req.Value))
		}
		return nil
	})
}

type resetRequest struct {
	Preserve []string `json:"preserve"`
}

// handleDraftReset restores defaults, keeping the listed fields.
func (s *Server) handleDraftReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.editDraft(w, r, func(f *form.Form) error {
		f.Reset(req.Preserve...)
		return nil
	})
}

// handleDraftClear resets every field.
func (s *Server) handleDraftClear(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, func(f *form.Form) error {
		f.Clear()
		return nil
	})
}

// handleDraftEndNow stamps the end time with the current time.
func (s *Server) handleDraftEndNow(w http.ResponseWriter, r *http.Request) {
	s.editDraft(w, r, func(f *form.Form) error {
		f.SetEndTimeToNow()
		return nil
	})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// handleDraftMode switches the form tab.
func (s *Server) handleDraftMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	id := identity(r)
	s.editDraft(w, r, func(f *form.Form) error {
		return switchMode(f, req.Mode, id.CanEscalate())
	})
}

// switchMode parses mode and applies it to f. Escalation is refused to
// callers that may not use it.
func switchMode(f *form.Form, mode string, canEscalate bool) error {
	t, ok := record.ParseMode(mode)
	if !ok {
		return core.Invalid("set mode", "VAL004", fmt.Sprintf("Modo de formulário inválido: %q.", mode))
	}
	if t == record.TypeEscalation && !canEscalate {
		return core.Forbidden("set mode", "Técnicos não podem registrar chamados escalados.")
	}
	return f.SetMode(t)
}

// handleSummary returns the live summary as plain text.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var text string
	_ = s.sessions.workspace(w, r).with(func(f *form.Form) error {
		text = s.service.Summary(f.Draft(), f.Mode())
		return nil
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}
