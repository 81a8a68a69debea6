package web

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/form"
	"github.com/JonMunkholm/hwlog/internal/logging"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/web/templates"
)

// chrome builds the header data shared by every page.
func (s *Server) chrome(r *http.Request) templates.Chrome {
	id := identity(r)
	c := templates.Chrome{
		Subject:     id.Subject,
		Role:        string(id.Role),
		CanEscalate: id.CanEscalate(),
		StoreKind:   s.service.StoreKind(),
	}
	if b := s.service.Banner(); b != nil {
		c.Banner = &templates.Banner{Message: b.Message, Action: b.Action, Code: b.Code}
	}
	return c
}

// renderPage writes body inside the layout.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, title string, nav templates.Nav, chrome templates.Chrome, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Layout(title, nav, chrome, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "page", title, "error", err)
	}
}

// handleFormPage renders the draft form. ?mode= switches the tab first.
func (s *Server) handleFormPage(w http.ResponseWriter, r *http.Request) {
	chrome := s.chrome(r)
	var data templates.FormData
	err := s.sessions.workspace(w, r).with(func(f *form.Form) error {
		if mode := r.URL.Query().Get("mode"); mode != "" {
			if err := switchMode(f, mode, chrome.CanEscalate); err != nil {
				return err
			}
		}
		// A technician's session may still hold an escalation draft from
		// before a role change.
		if f.Mode() == record.TypeEscalation && !chrome.CanEscalate {
			_ = f.SetMode(record.TypeGeneral)
		}
		d := f.Draft()
		data = templates.FormData{
			Mode:        f.Mode(),
			Draft:       d,
			Summary:     s.service.Summary(d, f.Mode()),
			CanEscalate: chrome.CanEscalate,
		}
		return nil
	})
	if err != nil {
		chrome.ErrorMessage = core.FormatUserError(err)
	}
	s.renderPage(w, r, "Formulário", templates.NavForm, chrome, templates.FormPage(data))
}

// handleRecordsPage renders history with search and an optional detail pane.
func (s *Server) handleRecordsPage(w http.ResponseWriter, r *http.Request) {
	chrome := s.chrome(r)
	q := r.URL.Query()

	records, err := s.service.Search(r.Context(), q.Get("search"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := templates.RecordsData{
		Search:   q.Get("search"),
		Records:  records,
		CanAdmin: identity(r).IsAdmin(),
		Dates:    s.service.FormatDate,
	}
	if id := q.Get("id"); id != "" {
		rec, text, err := s.service.Detail(r.Context(), id)
		if err != nil {
			chrome.ErrorMessage = core.FormatUserError(err)
		} else {
			data.Selected = &rec
			data.Summary = text
		}
	} else {
		s.service.ClearSelection()
	}
	s.renderPage(w, r, "Registros", templates.NavRecords, chrome, templates.RecordsPage(data))
}

// handleDashboardPage renders the escalation dashboard.
func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	records, stats, err := s.service.Dashboard(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderPage(w, r, "Escaladas", templates.NavDashboard, s.chrome(r), templates.DashboardPage(templates.DashboardData{
		Records: records,
		Stats:   stats,
		Dates:   s.service.FormatDate,
	}))
}

// handleSettingsPage renders the connection settings and setup script.
func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	chrome := s.chrome(r)
	conn, err := s.resolveConnection(r)
	if err != nil {
		chrome.ErrorMessage = core.FormatUserError(err)
	}
	st := s.settingsState(conn)
	s.renderPage(w, r, "Configurações", templates.NavSettings, chrome, templates.SettingsPage(templates.SettingsData{
		Source:    string(st.Source),
		URL:       st.URL,
		HasKey:    st.HasKey,
		StoreKind: st.StoreKind,
		Locale:    st.Locale,
		SetupSQL:  s.service.SetupSQL(),
		CanAdmin:  identity(r).IsAdmin(),
	}))
}
