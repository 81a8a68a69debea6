package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/hwlog/internal/config"
	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/settings"
	"github.com/JonMunkholm/hwlog/internal/store"
	mw "github.com/JonMunkholm/hwlog/internal/web/middleware"
)

const (
	adminKey = "admin-secret"
	techKey  = "tech-secret"
)

type testEnv struct {
	t       *testing.T
	server  *Server
	service *core.Service
	opened  []settings.Connection
}

func newTestEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("AUTH_API_KEYS", "admin@acme:admin:"+adminKey+",tecnico@acme:technician:"+techKey)
	t.Setenv("STORE_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	svc := core.NewService(st, core.Options{})
	if err := svc.FetchAll(context.Background()); err != nil {
		require.True(t, core.IsKind(err, core.KindMissingTable), "unexpected fetch error: %v", err)
	}

	sets, err := settings.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sets.Close() })

	env := &testEnv{t: t, service: svc}
	open := func(_ context.Context, conn settings.Connection) (store.Store, error) {
		env.opened = append(env.opened, conn)
		return store.NewMemory(store.RecordsTable, store.AuditTable), nil
	}

	srv, err := NewServer(cfg, svc, sets, open)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	env.server = srv
	return env
}

// client keeps the session cookie between requests.
type client struct {
	env     *testEnv
	key     string
	cookies []*http.Cookie
}

func (e *testEnv) client(key string) *client {
	return &client{env: e, key: key}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.env.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.env.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set(mw.APIKeyHeader, c.key)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	c.env.server.Router().ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newMemory() store.Store {
	return store.NewMemory(store.RecordsTable, store.AuditTable)
}

func fillGeneral(t *testing.T, c *client) {
	t.Helper()
	for name, value := range map[string]string{
		"analystName": "Ana",
		"subject":     "1200 - Dúvida técnica",
		"task":        "T-100",
	} {
		rec := c.do(http.MethodPost, "/api/draft/field", fieldRequest{Name: name, Value: value})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func createRecord(t *testing.T, c *client) createResponse {
	t.Helper()
	fillGeneral(t, c)
	rec := c.do(http.MethodPost, "/api/records", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[createResponse](t, rec)
}

func TestDraftAndCreate(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client("")

	rec := c.do(http.MethodGet, "/api/draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[draftResponse](t, rec)
	require.Equal(t, "geral", state.Tab)
	require.Len(t, c.cookies, 1)
	require.Equal(t, sessionCookie, c.cookies[0].Name)

	fillGeneral(t, c)

	rec = c.do(http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	require.Contains(t, rec.Body.String(), "T-100")

	rec = c.do(http.MethodPost, "/api/records", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[createResponse](t, rec)
	require.NotEmpty(t, created.Record.ID)
	require.Equal(t, created.Summary, created.Clipboard)

	// The draft is reset but keeps the analyst.
	state = decode[draftResponse](t, c.do(http.MethodGet, "/api/draft", nil))
	require.Equal(t, "Ana", state.Draft.AnalystName)
	require.Empty(t, state.Draft.Task)

	list := decode[map[string]any](t, c.do(http.MethodGet, "/api/records?search=t-100", nil))
	require.EqualValues(t, 1, list["count"])
}

func TestCreateWithBody(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client(adminKey)

	rec := c.do(http.MethodPost, "/api/records", createRequest{
		Mode: "chamadoEscalado",
		Fields: map[string]any{
			"analystName":       "Bruno",
			"locationName":      "Agência 12",
			"customerComplaint": "ATM travado",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[createResponse](t, rec)
	require.Equal(t, "ESCALATION", string(created.Record.RecordType))
	require.Equal(t, "Aberto", created.Record.Status)
}

func TestCreateValidationError(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client("")

	rec := c.do(http.MethodPost, "/api/records", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	require.Equal(t, "VAL001", resp.Code)
	require.Equal(t, "validation", resp.Kind)
	require.Empty(t, env.service.History())
}

func TestCreateFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client(adminKey)

	rec := c.do(http.MethodPost, "/api/records", createRequest{
		Mode:   "escala",
		Fields: map[string]any{"task": "T-9"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VAL001", decode[ErrorResponse](t, rec).Code)

	state := decode[draftResponse](t, c.do(http.MethodGet, "/api/draft", nil))
	require.Equal(t, record.TypeGeneral, state.Mode)
	require.Empty(t, state.Draft.Task)
	require.Empty(t, env.service.History())
}

func TestDraftRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client("")

	tests := []struct {
		name string
		path string
		body any
		code string
	}{
		{"unknown field", "/api/draft/field", fieldRequest{Name: "nope", Value: "x"}, "VAL003"},
		{"unknown sic", "/api/draft/sic", sicRequest{Value: "Impressora"}, "VAL003"},
		{"unknown mode", "/api/draft/mode", modeRequest{Mode: "outro"}, "VAL004"},
		{"status outside domain", "/api/draft/field", fieldRequest{Name: "status", Value: "Banana"}, "VAL003"},
		{"unknown sic in list", "/api/draft/field", fieldRequest{Name: "sicOptions", Value: "Saques,Impressora"}, "VAL003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t, newMemory())
	req := httptest.NewRequest(http.MethodPost, "/api/draft/field", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VAL005", decode[ErrorResponse](t, rec).Code)
}

func TestTechnicianRestrictions(t *testing.T) {
	env := newTestEnv(t, newMemory())
	created := createRecord(t, env.client(adminKey))
	tech := env.client(techKey)

	rec := tech.do(http.MethodPost, "/api/draft/mode", modeRequest{Mode: "chamadoEscalado"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "AUTH001", decode[ErrorResponse](t, rec).Code)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/records"},
		{http.MethodGet, "/api/records/" + created.Record.ID},
		{http.MethodGet, "/api/dashboard"},
		{http.MethodDelete, "/api/records/" + created.Record.ID},
		{http.MethodGet, "/api/export?filter=ALL"},
		{http.MethodGet, "/api/audit"},
		{http.MethodPost, "/api/reload"},
		{http.MethodDelete, "/api/settings"},
	} {
		rec := tech.do(tc.method, tc.path, nil)
		require.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}

	// Technicians still use the validation form.
	rec = tech.do(http.MethodPost, "/api/draft/mode", modeRequest{Mode: "escala"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.service.History(), 1)
}

func TestUnknownAPIKey(t *testing.T) {
	env := newTestEnv(t, newMemory())
	rec := env.client("bogus").do(http.MethodGet, "/api/draft", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "AUTH002", decode[ErrorResponse](t, rec).Code)
}

func TestRecordLifecycle(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client(adminKey)
	id := createRecord(t, c).Record.ID

	detail := decode[map[string]any](t, c.do(http.MethodGet, "/api/records/"+id, nil))
	require.Contains(t, detail["summary"], "T-100")
	sel, ok := env.service.Selected()
	require.True(t, ok)
	require.Equal(t, id, sel.ID)

	rec := c.do(http.MethodPatch, "/api/records/"+id, updateRequest{Field: "escalationValidation", Value: "Sim"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := env.service.Get(id)
	require.NoError(t, err)
	require.Equal(t, "Sim", got.EscalationValidation)

	rec = c.do(http.MethodPatch, "/api/records/"+id, updateRequest{Field: "id", Value: "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/records/"+id+"/toggle-status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Fechado", decode[map[string]string](t, rec)["status"])

	rec = c.do(http.MethodDelete, "/api/records/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodGet, "/api/records/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NF001", decode[ErrorResponse](t, rec).Code)

	audit := decode[map[string]any](t, c.do(http.MethodGet, "/api/audit?action=delete", nil))
	require.EqualValues(t, 1, audit["count"])
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client(adminKey)

	rec := c.do(http.MethodGet, "/api/export?filter=ALL", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "EXP001", decode[ErrorResponse](t, rec).Code)

	rec = c.do(http.MethodGet, "/api/export?filter=SOMETHING", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "EXP002", decode[ErrorResponse](t, rec).Code)

	createRecord(t, c)

	rec = c.do(http.MethodGet, "/api/export?filter=ALL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	require.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	require.Equal(t, "1", rec.Header().Get("X-Report-Rows"))

	rec = c.do(http.MethodGet, "/api/export?filter=ALL&format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = c.do(http.MethodGet, "/api/export?filter=ALL&format=pdf", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingTableBanner(t *testing.T) {
	env := newTestEnv(t, store.NewMemory(store.AuditTable))
	c := env.client("")

	health := decode[map[string]any](t, c.do(http.MethodGet, "/api/health", nil))
	require.Equal(t, "degraded", health["status"])

	rec := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "TBL001")
	require.Contains(t, rec.Body.String(), "support_records")

	// Reloading onto a store that has the table clears the banner.
	rec = c.do(http.MethodPost, "/api/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Nil(t, env.service.Banner())
	require.Len(t, env.opened, 1)
	require.Equal(t, settings.SourceNone, env.opened[0].Source)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, newMemory())
	c := env.client(adminKey)

	rec := c.do(http.MethodPost, "/api/settings", saveSettingsRequest{URL: "mysql://db", Key: "k"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VAL007", decode[ErrorResponse](t, rec).Code)

	rec = c.do(http.MethodPost, "/api/settings", saveSettingsRequest{URL: "postgres://db.local/hw"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VAL006", decode[ErrorResponse](t, rec).Code)
	require.Empty(t, env.opened)

	rec = c.do(http.MethodPost, "/api/settings", saveSettingsRequest{URL: "postgres://app:pw@db.local/hw", Key: "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, env.opened, 1)
	require.Equal(t, "secret", env.opened[0].Key)

	got := decode[settingsResponse](t, c.do(http.MethodGet, "/api/settings", nil))
	require.Equal(t, settings.SourceLocal, got.Source)
	require.True(t, got.HasKey)
	require.NotContains(t, got.URL, "pw")
	require.NotContains(t, c.do(http.MethodGet, "/api/settings", nil).Body.String(), "secret")

	rec = c.do(http.MethodDelete, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, settings.SourceNone, decode[settingsResponse](t, rec).Source)

	rec = c.do(http.MethodGet, "/api/settings/sql", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "create table if not exists support_records")
}

func TestPages(t *testing.T) {
	env := newTestEnv(t, newMemory())
	admin := env.client(adminKey)
	id := createRecord(t, admin).Record.ID

	for _, path := range []string{"/", "/?mode=escala", "/records", "/records?id=" + id, "/dashboard", "/settings"} {
		rec := admin.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
		require.Contains(t, rec.Body.String(), "<main>", path)
	}

	detail := admin.do(http.MethodGet, "/records?id="+id, nil).Body.String()
	require.Contains(t, detail, `data-action="delete"`)

	tech := env.client(techKey)
	form := tech.do(http.MethodGet, "/", nil).Body.String()
	require.NotContains(t, form, "chamadoEscalado")
	require.Equal(t, http.StatusForbidden, tech.do(http.MethodGet, "/dashboard", nil).Code)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, newMemory())
	rec := env.client("").do(http.MethodGet, "/api/health", nil)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind core.Kind
		want int
	}{
		{core.KindValidation, http.StatusBadRequest},
		{core.KindPermission, http.StatusForbidden},
		{core.KindNotFound, http.StatusNotFound},
		{core.KindEmptyExport, http.StatusUnprocessableEntity},
		{core.KindMissingTable, http.StatusServiceUnavailable},
		{core.KindConnectivity, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			require.Equal(t, tt.want, statusFor(&core.Error{Kind: tt.kind, Op: "test"}))
		})
	}
}
