package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/hwlog/internal/auth"
)

// APIKeyHeader carries the caller's credential.
const APIKeyHeader = "X-API-Key"

// Authenticate resolves the X-API-Key header through provider and attaches
// the identity to the request context.
//
// A request without a key gets fallback when required is false and is
// rejected otherwise. A key the provider does not know is always rejected.
func Authenticate(provider auth.Provider, required bool, fallback auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				if required {
					slog.Warn("auth: missing API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					writeAuthError(w, http.StatusUnauthorized, "missing API key")
					return
				}
				reportRole(r.Context(), fallback.Role)
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), fallback)))
				return
			}

			id, err := provider.Lookup(r.Context(), apiKey)
			if err != nil {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key")
				return
			}

			reportRole(r.Context(), id.Role)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","message":"Credencial inválida ou ausente.","code":"AUTH002"}`))
}

type roleSinkKey struct{}

// withRoleSink lets Logger learn the role resolved further down the chain.
func withRoleSink(ctx context.Context, role *auth.Role) context.Context {
	return context.WithValue(ctx, roleSinkKey{}, role)
}

func reportRole(ctx context.Context, role auth.Role) {
	if p, ok := ctx.Value(roleSinkKey{}).(*auth.Role); ok {
		*p = role
	}
}
