// Package config provides centralized configuration management for the
// application. It loads settings from environment variables with sensible
// defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Lookup   LookupConfig
	Consult  ConsultConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds bulk import processing settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed spreadsheet size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// ChunkSize is the number of rows per progress/backup chunk (default: 1000)
	ChunkSize int `env:"IMPORT_CHUNK_SIZE" default:"1000"`

	// Timeout is the overall wall-clock limit for one import job (default: 3h)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"3h"`
}

// LookupConfig holds settings for the external worker-registry client.
type LookupConfig struct {
	// BaseURL is the registry API root (required when consultations run)
	BaseURL string `env:"LOOKUP_BASE_URL"`

	// ClientID and ClientSecret authenticate the token request (HTTP Basic)
	ClientID     string `env:"LOOKUP_CLIENT_ID"`
	ClientSecret string `env:"LOOKUP_CLIENT_SECRET"`

	// TokenTTL is how long a bearer token is cached (default: 50m,
	// kept short of the provider's 1h expiry)
	TokenTTL time.Duration `env:"LOOKUP_TOKEN_TTL" default:"50m"`

	// RequestTimeout bounds a single registry HTTP call (default: 30s)
	RequestTimeout time.Duration `env:"LOOKUP_REQUEST_TIMEOUT" default:"30s"`

	// RequestsPerSecond paces outbound calls to the registry (default: 5)
	RequestsPerSecond int `env:"LOOKUP_REQUESTS_PER_SECOND" default:"5"`
}

// ConsultConfig holds consultation batch settings.
type ConsultConfig struct {
	// MaxAttempts is how many passes are made over still-pending CPFs (default: 5)
	MaxAttempts int `env:"CONSULT_MAX_ATTEMPTS" default:"5"`

	// RetryDelay is the fixed wait between attempts (default: 60s)
	RetryDelay time.Duration `env:"CONSULT_RETRY_DELAY" default:"60s"`

	// Timeout is the overall wall-clock limit for one consultation job (default: 3h)
	Timeout time.Duration `env:"CONSULT_TIMEOUT" default:"3h"`

	// ReportsDir is where generated result spreadsheets are stored (default: ./reports)
	ReportsDir string `env:"CONSULT_REPORTS_DIR" default:"reports"`
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
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
