// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Capture  CaptureConfig
	Export   ExportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize caps submission bodies in bytes (default: 10MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"10485760"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies pending migrations when the server starts (default: false)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"false"`
}

// CaptureConfig holds how posted values are read. Formats are Go layouts.
type CaptureConfig struct {
	DateFormat     string `env:"CAPTURE_DATE_FORMAT" default:"2006-01-02"`
	TimeFormat     string `env:"CAPTURE_TIME_FORMAT" default:"15:04"`
	DateTimeFormat string `env:"CAPTURE_DATETIME_FORMAT" default:"2006-01-02 15:04"`

	// Timezone is the IANA zone dates are interpreted in (default: UTC)
	Timezone string `env:"CAPTURE_TIMEZONE" default:"UTC"`

	// TrimSpace strips surrounding whitespace from text values before storing
	TrimSpace bool `env:"CAPTURE_TRIM_SPACE" default:"false"`
}

// ExportConfig holds export rendering settings.
type ExportConfig struct {
	// Fixed column headers
	HeaderCreated string `env:"EXPORT_HEADER_CREATED" default:"Created"`
	HeaderForm    string `env:"EXPORT_HEADER_FORM" default:"Form"`
	HeaderMember  string `env:"EXPORT_HEADER_MEMBER" default:"Member"`

	// DateTimeFormat renders the created column (default: 2006-01-02 15:04)
	DateTimeFormat string `env:"EXPORT_DATETIME_FORMAT" default:"2006-01-02 15:04"`

	// DuplicatePolicy is keep-last, keep-first or reject (default: keep-last)
	DuplicatePolicy string `env:"EXPORT_DUPLICATE_POLICY" default:"keep-last"`

	// EnabledTypes restricts the exporters; empty enables all
	EnabledTypes []string `env:"EXPORT_ENABLED_TYPES"`

	// CSVBOM prefixes CSV files with a UTF-8 byte order mark (default: false)
	CSVBOM bool `env:"EXPORT_CSV_BOM" default:"false"`

	// CSVDelimiter is a single character (default: ,)
	CSVDelimiter string `env:"EXPORT_CSV_DELIMITER" default:","`

	// MaxConcurrent is the maximum number of parallel exports (default: 4)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long to wait for an export slot (default: 15s)
	MaxWait time.Duration `env:"EXPORT_MAX_WAIT" default:"15s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// CaptureLimit is submissions per minute per IP (default: 20)
	CaptureLimit int `env:"RATE_LIMIT_CAPTURE" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects the export and listing routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled serves /metrics (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Namespace prefixes every metric name (default: leads)
	Namespace string `env:"METRICS_NAMESPACE" default:"leads"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
