package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options selects and tunes a backend.
type Options struct {
	// URL is a postgres:// connection string. Empty selects the memory backend.
	URL string
	// Key, when set, overrides the password in URL.
	Key string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Tables are registered on the memory backend.
	Tables []string
}

// Open returns the backend selected by opts: Postgres when a URL is
// configured, Memory otherwise. The choice is made once; callers
// reinitialize by opening a new store.
func Open(ctx context.Context, opts Options) (Store, error) {
	if strings.TrimSpace(opts.URL) == "" {
		tables := opts.Tables
		if len(tables) == 0 {
			tables = []string{RecordsTable, AuditTable}
		}
		slog.Info("store: no URL configured, using in-memory backend")
		return NewMemory(tables...), nil
	}

	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse store URL: %w", err)
	}
	if opts.Key != "" {
		poolConfig.ConnConfig.Password = opts.Key
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, translate("ping", DatabaseName(opts.URL), err)
	}

	slog.Info("store: connected", "database", DatabaseName(opts.URL))
	return NewPostgres(pool), nil
}

// DatabaseName extracts the database name from a connection URL for logging.
func DatabaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// ValidURL reports whether raw is a usable postgres connection URL.
func ValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "postgres" || u.Scheme == "postgresql") && u.Host != ""
}
