package core

import (
	"context"

	"github.com/JonMunkholm/hwlog/internal/auth"
)

type contextKey string

const (
	ctxKeyIPAddress contextKey = "audit_ip"
	ctxKeyUserAgent contextKey = "audit_ua"
)

// WithRequestMeta records the caller's address and user agent for the audit trail.
func WithRequestMeta(ctx context.Context, ip, ua string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyIPAddress, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// RequestMeta returns the values stored by WithRequestMeta.
func RequestMeta(ctx context.Context) (ip, ua string) {
	ip, _ = ctx.Value(ctxKeyIPAddress).(string)
	ua, _ = ctx.Value(ctxKeyUserAgent).(string)
	return ip, ua
}

// identityFrom returns the caller identity, falling back to the default
// session when none was attached.
func identityFrom(ctx context.Context) auth.Identity {
	if id, ok := auth.FromContext(ctx); ok {
		return id
	}
	return auth.Default()
}
