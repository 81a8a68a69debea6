// Package settings persists operator overrides for the store connection in
// a local SQLite key-value file.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/hwlog/internal/store"
	_ "modernc.org/sqlite"
)

// Keys stored in the settings table.
const (
	KeyStoreURL = "store_url"
	KeyStoreKey = "store_key"
)

var (
	// ErrIncomplete is returned when saving a connection without both URL and key.
	ErrIncomplete = errors.New("store URL and key are both required")
	// ErrInvalidURL is returned for URLs that are not postgres connection strings.
	ErrInvalidURL = errors.New("store URL must start with postgres://")
)

// Source tells where the active connection settings came from.
type Source string

const (
	SourceEnv   Source = "env"
	SourceLocal Source = "local"
	SourceNone  Source = "none"
)

// Connection is the resolved store connection. An empty URL means the
// in-memory backend.
type Connection struct {
	URL    string
	Key    string
	Source Source
}

const upsertSetting = `INSERT INTO settings (key, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Settings is the durable key-value file.
type Settings struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database at path.
// ":memory:" gives a throwaway store for tests.
func Open(path string) (*Settings, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	// One connection keeps ":memory:" databases consistent across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return &Settings{db: db}, nil
}

// Close closes the database.
func (s *Settings) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it was set.
func (s *Settings) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Settings) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, upsertSetting, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (s *Settings) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, k); err != nil {
			return fmt.Errorf("delete setting %s: %w", k, err)
		}
	}
	return nil
}

// SaveConnection stores a store URL and key override.
func (s *Settings) SaveConnection(ctx context.Context, url, key string) error {
	url, key = strings.TrimSpace(url), strings.TrimSpace(key)
	if url == "" || key == "" {
		return ErrIncomplete
	}
	if !store.ValidURL(url) {
		return ErrInvalidURL
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertSetting, KeyStoreURL, url); err != nil {
		return fmt.Errorf("save store URL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertSetting, KeyStoreKey, key); err != nil {
		return fmt.Errorf("save store key: %w", err)
	}
	return tx.Commit()
}

// ClearConnection removes the override so the environment (or the
// in-memory fallback) applies again.
func (s *Settings) ClearConnection(ctx context.Context) error {
	return s.Delete(ctx, KeyStoreURL, KeyStoreKey)
}

// Resolve picks the active connection. A saved override wins over the
// environment values; with neither, the in-memory backend is used.
func (s *Settings) Resolve(ctx context.Context, envURL, envKey string) (Connection, error) {
	url, hasURL, err := s.Get(ctx, KeyStoreURL)
	if err != nil {
		return Connection{}, err
	}
	if hasURL && url != "" {
		key, _, err := s.Get(ctx, KeyStoreKey)
		if err != nil {
			return Connection{}, err
		}
		return Connection{URL: url, Key: key, Source: SourceLocal}, nil
	}
	if strings.TrimSpace(envURL) != "" {
		return Connection{URL: envURL, Key: envKey, Source: SourceEnv}, nil
	}
	return Connection{Source: SourceNone}, nil
}
