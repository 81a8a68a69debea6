package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/logging"
	"github.com/JonMunkholm/hwlog/internal/settings"
)

type settingsResponse struct {
	Source    settings.Source   `json:"source"`
	URL       string            `json:"url,omitempty"`
	HasKey    bool              `json:"hasKey"`
	StoreKind string            `json:"storeKind"`
	Locale    string            `json:"locale"`
	Banner    *core.UserMessage `json:"banner,omitempty"`
}

// redactURL hides any password embedded in a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Redacted()
}

func (s *Server) resolveConnection(r *http.Request) (settings.Connection, error) {
	return s.settings.Resolve(r.Context(), s.cfg.Store.URL, s.cfg.Store.Key)
}

func (s *Server) settingsState(conn settings.Connection) settingsResponse {
	return settingsResponse{
		Source:    conn.Source,
		URL:       redactURL(conn.URL),
		HasKey:    conn.Key != "",
		StoreKind: s.service.StoreKind(),
		Locale:    s.service.Locale(),
		Banner:    s.service.Banner(),
	}
}

// handleGetSettings returns the active connection with secrets removed.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	conn, err := s.resolveConnection(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.settingsState(conn))
}

func requireAdmin(r *http.Request, op string) error {
	if !identity(r).IsAdmin() {
		return core.Forbidden(op, "Apenas administradores podem alterar a conexão do banco.")
	}
	return nil
}

type saveSettingsRequest struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// handleSaveSettings stores a connection override and reconnects.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r, "save settings"); err != nil {
		s.respondError(w, r, err)
		return
	}
	var req saveSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.settings.SaveConnection(r.Context(), req.URL, req.Key); err != nil {
		switch {
		case errors.Is(err, settings.ErrIncomplete):
			err = core.Invalid("save settings", "VAL006", "Informe a URL e a chave de acesso do banco.")
		case errors.Is(err, settings.ErrInvalidURL):
			err = core.Invalid("save settings", "VAL007", "A URL do banco deve começar com postgres://.")
		}
		s.respondError(w, r, err)
		return
	}
	s.reconnect(w, r)
}

// handleClearSettings removes the override and reconnects with the
// environment settings, or the in-memory store.
func (s *Server) handleClearSettings(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r, "clear settings"); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.settings.ClearConnection(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.reconnect(w, r)
}

// handleReload re-resolves the connection and reinitializes the service.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r, "reload"); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.reconnect(w, r)
}

// reconnect opens the resolved store and swaps it in. A missing records
// table is reported through the banner rather than as a failure, since the
// connection itself succeeded.
func (s *Server) reconnect(w http.ResponseWriter, r *http.Request) {
	conn, err := s.resolveConnection(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	next, err := s.open(r.Context(), conn)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.Reinitialize(r.Context(), next); err != nil && !core.IsKind(err, core.KindMissingTable) {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("store reinitialized",
		"source", conn.Source,
		"store", s.service.StoreKind(),
	)
	writeJSON(w, http.StatusOK, s.settingsState(conn))
}

// handleSetupSQL returns the table creation script as plain text.
func (s *Server) handleSetupSQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.service.SetupSQL()))
}

// handleHealth reports liveness and the active backend.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.service.Banner() != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"store":    s.service.StoreKind(),
		"records":  len(s.service.History()),
		"sessions": s.sessions.count(),
	})
}
