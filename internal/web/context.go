package web

import (
	"net/http"

	"github.com/JonMunkholm/hwlog/internal/auth"
	"github.com/JonMunkholm/hwlog/internal/core"
	mw "github.com/JonMunkholm/hwlog/internal/web/middleware"
)

// requestMeta adds the client IP and User-Agent to the context for audit
// logging.
func requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.WithRequestMeta(r.Context(), mw.ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identity returns the caller identity attached by Authenticate.
func identity(r *http.Request) auth.Identity {
	if id, ok := auth.FromContext(r.Context()); ok {
		return id
	}
	return auth.Default()
}
