// Package config provides centralized configuration management for the application.
// Values come from defaults, an optional YAML file named by CONFIG_FILE, and
// environment variables, in increasing order of precedence. Everything is
// validated on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Settings SettingsConfig  `yaml:"settings"`
	Auth     AuthConfig      `yaml:"auth"`
	Rate     RateLimitConfig `yaml:"rate"`
	Security SecurityConfig  `yaml:"security"`
	Logging  LoggingConfig   `yaml:"logging"`
	Display  DisplayConfig   `yaml:"display"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig holds record store connection settings.
// An empty URL selects the in-memory store.
type StoreConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both STORE_URL and DATABASE_URL env vars for compatibility
	URL string `yaml:"url" env:"STORE_URL" envAlt:"DATABASE_URL"`

	// Key overrides the password in URL when set.
	Key string `yaml:"key" env:"STORE_KEY"`

	Table      string `yaml:"table" env:"STORE_TABLE" default:"support_records"`
	AuditTable string `yaml:"audit_table" env:"STORE_AUDIT_TABLE" default:"record_audit"`

	MaxConns        int           `yaml:"max_conns" env:"STORE_MAX_CONNS" default:"10"`
	MinConns        int           `yaml:"min_conns" env:"STORE_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"STORE_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"STORE_MAX_CONN_IDLE_TIME" default:"30m"`

	// OpTimeout bounds each store call (default: 15s)
	OpTimeout time.Duration `yaml:"op_timeout" env:"STORE_OP_TIMEOUT" default:"15s"`

	// RefreshInterval reloads history from the store periodically; 0 disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"STORE_REFRESH_INTERVAL" default:"0s"`
}

// SettingsConfig locates the local settings file.
type SettingsConfig struct {
	Path string `yaml:"path" env:"SETTINGS_PATH" default:"hwlog-settings.db"`
}

// AuthConfig holds identity settings.
type AuthConfig struct {
	// Required rejects requests without a known X-API-Key (default: false)
	Required bool `yaml:"required" env:"AUTH_REQUIRED" default:"false"`

	// APIKeys is a comma-separated list of subject:role:key entries
	APIKeys []string `yaml:"api_keys" env:"AUTH_API_KEYS"`

	// DefaultSubject is the session identity when no key is presented.
	DefaultSubject string `yaml:"default_subject" env:"AUTH_DEFAULT_SUBJECT" default:"admin@sistema.local"`

	// CLIKey is the API key hwctl presents; empty runs as DefaultSubject.
	CLIKey string `yaml:"cli_key" env:"HWCTL_API_KEY"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
	Burst             int  `yaml:"burst" env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `yaml:"enable_csp" env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// DisplayConfig controls how timestamps are rendered in summaries and reports.
type DisplayConfig struct {
	Locale string `yaml:"locale" env:"DISPLAY_LOCALE" default:"pt-BR"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
