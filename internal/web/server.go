// Package web provides the HTTP server and handlers for the support log UI.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/hwlog/internal/auth"
	"github.com/JonMunkholm/hwlog/internal/config"
	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/settings"
	"github.com/JonMunkholm/hwlog/internal/store"
	mw "github.com/JonMunkholm/hwlog/internal/web/middleware"
)

// StoreOpener connects to the store described by a resolved connection.
// Settings changes use it to reinitialize the service.
type StoreOpener func(ctx context.Context, conn settings.Connection) (store.Store, error)

// Server is the HTTP server for the support log.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	settings *settings.Settings
	open     StoreOpener
	sessions *sessions
	limiter  *mw.RateLimiter
	provider auth.Provider
	fallback auth.Identity
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, svc *core.Service, st *settings.Settings, open StoreOpener) (*Server, error) {
	provider, err := auth.NewStaticProvider(cfg.Auth.APIKeys)
	if err != nil {
		return nil, fmt.Errorf("auth keys: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		service:  svc,
		settings: st,
		open:     open,
		sessions: newSessions(sessionIdleTTL),
		provider: provider,
		fallback: auth.Identity{
			Subject: cfg.Auth.DefaultSubject,
			Role:    auth.RoleFromName(cfg.Auth.DefaultSubject),
		},
		router: chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = mw.NewRateLimiter(cfg.Rate.RequestsPerMinute, cfg.Rate.Burst)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware)
	}
	s.router.Use(mw.Authenticate(s.provider, s.cfg.Auth.Required, s.fallback))
	s.router.Use(requestMeta)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleFormPage)
	s.router.Get("/records", s.handleRecordsPage)
	s.router.Get("/dashboard", s.handleDashboardPage)
	s.router.Get("/settings", s.handleSettingsPage)

	s.router.Route("/api", func(r chi.Router) {
		// Draft form
		r.Get("/draft", s.handleGetDraft)
		r.Post("/draft/field", s.handleDraftField)
		r.Post("/draft/sic", s.handleDraftSic)
		r.Post("/draft/reset", s.handleDraftReset)
		r.Post("/draft/clear", s.handleDraftClear)
		r.Post("/draft/end-now", s.handleDraftEndNow)
		r.Post("/draft/mode", s.handleDraftMode)
		r.Get("/summary", s.handleSummary)

		// Records
		r.Get("/records", s.handleListRecords)
		r.Post("/records", s.handleCreateRecord)
		r.Get("/records/{id}", s.handleGetRecord)
		r.Patch("/records/{id}", s.handleUpdateRecord)
		r.Post("/records/{id}/toggle-status", s.handleToggleStatus)
		r.Delete("/records/{id}", s.handleDeleteRecord)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/export", s.handleExport)
		r.Get("/audit", s.handleAuditLog)

		// Store settings
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Delete("/settings", s.handleClearSettings)
		r.Get("/settings/sql", s.handleSetupSQL)
		r.Post("/reload", s.handleReload)

		r.Get("/health", s.handleHealth)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const csp = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", csp)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return core.Invalid("decode", "VAL005", "Requisição inválida.")
	}
	return nil
}

const maxBodyBytes = 1 << 20
