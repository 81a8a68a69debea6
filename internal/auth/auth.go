// Package auth resolves callers to an identity and role.
//
// Identities come from a Provider keyed by credential (an API key in the
// web layer). When authentication is not required the caller gets the
// default session identity.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

// Role is the permission level of an identity.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleUser       Role = "user"
)

// DefaultSubject is the identity used when no credential is presented and
// authentication is optional.
const DefaultSubject = "admin@sistema.local"

// ErrUnknownCredential is returned by providers for keys they do not know.
var ErrUnknownCredential = errors.New("unknown credential")

// ParseRole accepts the role names plus the Portuguese "tecnico".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "technician", "tecnico":
		return RoleTechnician, nil
	case "user":
		return RoleUser, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleFromName derives a role from an account name prefix: "admin..." is
// admin, "tecnico..." is technician, anything else falls back to admin.
// Only the default session uses this; configured identities carry an
// explicit role.
func RoleFromName(name string) Role {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "admin"):
		return RoleAdmin
	case strings.HasPrefix(name, "tecnico"):
		return RoleTechnician
	}
	return RoleAdmin
}

// Identity is an authenticated caller.
type Identity struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// Default returns the default session identity.
func Default() Identity {
	return Identity{Subject: DefaultSubject, Role: RoleFromName(DefaultSubject)}
}

// IsAdmin reports whether the identity may delete records and export reports.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanEscalate reports whether the identity may use the escalation form,
// the dashboard, and the records view. Technicians may not.
func (i Identity) CanEscalate() bool {
	return i.Role != RoleTechnician
}

// Provider looks up the identity behind a credential.
type Provider interface {
	Lookup(ctx context.Context, credential string) (Identity, error)
}

type entry struct {
	key      []byte
	identity Identity
}

// StaticProvider resolves API keys from a fixed list.
type StaticProvider struct {
	entries []entry
}

// NewStaticProvider parses entries of the form "subject:role:key".
func NewStaticProvider(entries []string) (*StaticProvider, error) {
	p := &StaticProvider{}
	for _, raw := range entries {
		parts := strings.SplitN(strings.TrimSpace(raw), ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid identity entry %q: want subject:role:key", redact(raw))
		}
		role, err := ParseRole(parts[1])
		if err != nil {
			return nil, fmt.Errorf("identity %s: %w", parts[0], err)
		}
		p.entries = append(p.entries, entry{
			key:      []byte(parts[2]),
			identity: Identity{Subject: parts[0], Role: role},
		})
	}
	return p, nil
}

// Len returns the number of configured identities.
func (p *StaticProvider) Len() int {
	return len(p.entries)
}

// Lookup compares credential against every configured key in constant time.
func (p *StaticProvider) Lookup(_ context.Context, credential string) (Identity, error) {
	var found Identity
	match := 0
	for _, e := range p.entries {
		if subtle.ConstantTimeCompare([]byte(credential), e.key) == 1 {
			found = e.identity
			match = 1
		}
	}
	if match == 0 {
		return Identity{}, ErrUnknownCredential
	}
	return found, nil
}

// redact hides the key part of an entry for error messages.
func redact(raw string) string {
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		return raw[:i+1] + "***"
	}
	return "***"
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity in ctx and whether one was set.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
