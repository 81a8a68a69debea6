// Package cli implements the hwctl subcommands.
//
// Commands run against the same record lifecycle controller as the web
// server, as the identity configured by HWCTL_API_KEY (or the default
// session identity when no key is set).
package cli

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/hwlog/internal/auth"
	"github.com/JonMunkholm/hwlog/internal/config"
	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/settings"
	"github.com/JonMunkholm/hwlog/internal/store"
	"github.com/JonMunkholm/hwlog/internal/summary"
)

// Env is what a command runs against.
type Env struct {
	Service  *core.Service
	Identity auth.Identity
	Close    func()
}

// Context attaches the command identity to ctx.
func (e *Env) Context(ctx context.Context) context.Context {
	return auth.WithIdentity(ctx, e.Identity)
}

// Loader builds the Env for one command invocation.
type Loader func(ctx context.Context) (*Env, error)

// Load resolves the store connection from cfg and the settings file, opens
// it and loads history. A missing records table is not fatal; it surfaces
// through the service banner so `hwctl sql` still works.
func Load(cfg *config.Config) Loader {
	return func(ctx context.Context) (*Env, error) {
		id, err := commandIdentity(ctx, cfg)
		if err != nil {
			return nil, err
		}

		sets, err := settings.Open(cfg.Settings.Path)
		if err != nil {
			return nil, err
		}
		conn, err := sets.Resolve(ctx, cfg.Store.URL, cfg.Store.Key)
		_ = sets.Close()
		if err != nil {
			return nil, err
		}

		st, err := store.Open(ctx, cfg.Store.Options(conn.URL, conn.Key))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		svc := core.NewService(st, core.Options{
			RecordsTable: cfg.Store.Table,
			AuditTable:   cfg.Store.AuditTable,
			OpTimeout:    cfg.Store.OpTimeout,
			Dates:        summary.NewDateFormatter(cfg.Display.Locale),
		})
		if err := svc.FetchAll(ctx); err != nil && !core.IsKind(err, core.KindMissingTable) {
			svc.Close()
			return nil, err
		}
		return &Env{Service: svc, Identity: id, Close: svc.Close}, nil
	}
}

// commandIdentity looks up the configured CLI key, falling back to the
// default session identity.
func commandIdentity(ctx context.Context, cfg *config.Config) (auth.Identity, error) {
	if cfg.Auth.CLIKey == "" {
		return auth.Identity{
			Subject: cfg.Auth.DefaultSubject,
			Role:    auth.RoleFromName(cfg.Auth.DefaultSubject),
		}, nil
	}
	provider, err := auth.NewStaticProvider(cfg.Auth.APIKeys)
	if err != nil {
		return auth.Identity{}, err
	}
	id, err := provider.Lookup(ctx, cfg.Auth.CLIKey)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("HWCTL_API_KEY: %w", err)
	}
	return id, nil
}
