package config

import "github.com/JonMunkholm/hwlog/internal/store"

// Options returns backend options for a resolved connection, carrying the
// pool limits and table names from c.
func (c *StoreConfig) Options(url, key string) store.Options {
	return store.Options{
		URL:             url,
		Key:             key,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		Tables:          []string{c.Table, c.AuditTable},
	}
}
