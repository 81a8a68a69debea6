package auth

import (
	"context"
	"errors"
	"testing"
)

func TestRoleFromName(t *testing.T) {
	tests := []struct {
		name string
		want Role
	}{
		{"admin@sistema.local", RoleAdmin},
		{"Administrador", RoleAdmin},
		{"tecnico.joao", RoleTechnician},
		{"TECNICO", RoleTechnician},
		{"maria", RoleAdmin},
		{"", RoleAdmin},
	}
	for _, tt := range tests {
		if got := RoleFromName(tt.name); got != tt.want {
			t.Errorf("RoleFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDefaultIdentity(t *testing.T) {
	id := Default()
	if id.Subject != DefaultSubject || !id.IsAdmin() {
		t.Errorf("Default() = %+v", id)
	}
}

func TestPermissions(t *testing.T) {
	tech := Identity{Role: RoleTechnician}
	user := Identity{Role: RoleUser}

	if tech.IsAdmin() || tech.CanEscalate() {
		t.Errorf("technician permissions wrong: admin=%v escalate=%v", tech.IsAdmin(), tech.CanEscalate())
	}
	if user.IsAdmin() || !user.CanEscalate() {
		t.Errorf("user permissions wrong: admin=%v escalate=%v", user.IsAdmin(), user.CanEscalate())
	}
}

func TestStaticProvider(t *testing.T) {
	p, err := NewStaticProvider([]string{
		"ana@bank:admin:k-admin",
		"joao@bank:tecnico:k-tech",
		"key:user:with:colons",
	})
	if err != nil {
		t.Fatalf("NewStaticProvider() error = %v", err)
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}

	ctx := context.Background()
	tests := []struct {
		key     string
		want    Identity
		wantErr error
	}{
		{"k-admin", Identity{Subject: "ana@bank", Role: RoleAdmin}, nil},
		{"k-tech", Identity{Subject: "joao@bank", Role: RoleTechnician}, nil},
		{"with:colons", Identity{Subject: "key", Role: RoleUser}, nil},
		{"nope", Identity{}, ErrUnknownCredential},
		{"", Identity{}, ErrUnknownCredential},
	}
	for _, tt := range tests {
		got, err := p.Lookup(ctx, tt.key)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Lookup(%q) error = %v, want %v", tt.key, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("Lookup(%q) = %+v, want %+v", tt.key, got, tt.want)
		}
	}
}

func TestStaticProviderRejectsBadEntries(t *testing.T) {
	for _, raw := range []string{"nokey", "a:admin:", ":admin:k", "a:root:k"} {
		if _, err := NewStaticProvider([]string{raw}); err == nil {
			t.Errorf("NewStaticProvider(%q) expected error", raw)
		}
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Error("FromContext() on empty context reported an identity")
	}
	want := Identity{Subject: "x", Role: RoleUser}
	got, ok := FromContext(WithIdentity(ctx, want))
	if !ok || got != want {
		t.Errorf("FromContext() = %+v, %v", got, ok)
	}
}
