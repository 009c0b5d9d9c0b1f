// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	API      APIConfig
	Import   ImportConfig
	Table    TableConfig
	Form     FormConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects where the employee collection is persisted.
type StorageConfig struct {
	// Driver is one of file, sqlite, postgres, memory (default: file)
	Driver string `env:"STORAGE_DRIVER" default:"file"`

	// Path is the directory (file driver) or database file (sqlite driver).
	Path string `env:"STORAGE_PATH" default:"data"`

	// DatabaseURL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SlotKey names the single slot holding the serialized collection.
	SlotKey string `env:"STORAGE_SLOT_KEY" default:"employees"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// APIConfig tunes the simulated remote API.
type APIConfig struct {
	// SeedURL locates the default dataset: http(s) URL, file path, or "embedded:".
	SeedURL string `env:"API_SEED_URL" default:"embedded:employees.json"`

	// FailureRate is the probability that a create/update/delete call fails (default: 0.005)
	FailureRate float64 `env:"API_FAILURE_RATE" default:"0.005"`

	// Delay is the simulated latency of create/update/delete calls.
	Delay time.Duration `env:"API_DELAY" default:"300ms"`

	// RandomSeed makes failures reproducible when non-zero.
	RandomSeed int64 `env:"API_RANDOM_SEED" default:"0"`

	// FetchTimeout bounds the HTTP seed fetch.
	FetchTimeout time.Duration `env:"API_FETCH_TIMEOUT" default:"10s"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted CSV size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel imports (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`
}

// TableConfig holds defaults for the employee table view.
type TableConfig struct {
	RowsPerPage    int `env:"TABLE_ROWS_PER_PAGE" default:"10"`
	MaxRowsPerPage int `env:"TABLE_MAX_ROWS_PER_PAGE" default:"100"`
}

// FormConfig holds employee form validation switches.
type FormConfig struct {
	// EnforceDateOrder rejects a termination date earlier than the employment date.
	EnforceDateOrder bool `env:"FORM_ENFORCE_DATE_ORDER" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// String renders the config for logging with the database URL masked.
func (c *Config) String() string {
	dbURL := ""
	if c.Storage.DatabaseURL != "" {
		dbURL = "[MASKED]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Config{Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Storage: {Driver: %q, Path: %q, URL: %q, SlotKey: %q}, ",
		c.Storage.Driver, c.Storage.Path, dbURL, c.Storage.SlotKey)
	fmt.Fprintf(&b, "API: {SeedURL: %q, FailureRate: %g, Delay: %s}, ",
		c.API.SeedURL, c.API.FailureRate, c.API.Delay)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}}", c.Logging.Level, c.Logging.Format)
	return b.String()
}
