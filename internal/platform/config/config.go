// Package config holds the process configuration. It is built once at startup
// and passed by value to every component that needs it.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Overland-East-Bay/ride-api/internal/platform/ratelimit"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Secrets used when Dev is set and no secret was configured.
const (
	DevJWTSecret = "DEV_JWT_SECRET"
	DevMasterKey = "DEV_MASTER_KEY"
)

type Config struct {
	Port int

	JWTSecret string
	MasterKey string

	RateLimitPerSecond     float64
	RateLimitBurst         int
	RateLimitPruneInterval time.Duration

	StorageBackend  string
	DatabaseURL     string
	SQLitePath      string
	BootstrapSchema bool

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// TrustProxyHeaders keys the rate limiter on X-Forwarded-For/X-Real-IP.
	TrustProxyHeaders bool
	MaxTokenTTL       time.Duration

	LogLevel  string
	LogFormat string

	// Dev fills in development secrets when none are configured.
	Dev bool
}

func Default() Config {
	return Config{
		Port:                   8080,
		RateLimitPerSecond:     2,
		RateLimitBurst:         5,
		RateLimitPruneInterval: time.Minute,
		StorageBackend:         StorageMemory,
		SQLitePath:             "ride-api.db",
		RequestTimeout:         15 * time.Second,
		ShutdownTimeout:        10 * time.Second,
		MaxTokenTTL:            24 * time.Hour,
		LogLevel:               "info",
		LogFormat:              "json",
	}
}

// Options returns the command-line options that populate c.
func (c *Config) Options() []Opt {
	d := Default()
	return []Opt{
		NewOpt(&c.Port, "port", d.Port, "port to listen on"),
		NewOpt(&c.JWTSecret, "jwt-secret", "", "shared HS256 secret for access tokens"),
		NewOpt(&c.MasterKey, "master-key", "", "secret that gates administrative routes"),
		NewOpt(&c.RateLimitPerSecond, "rate-limit-per-second", d.RateLimitPerSecond, "steady-state requests per second per client address"),
		NewOpt(&c.RateLimitBurst, "rate-limit-burst", d.RateLimitBurst, "maximum burst per client address"),
		NewOpt(&c.RateLimitPruneInterval, "rate-limit-prune-interval", d.RateLimitPruneInterval, "how often idle rate limit buckets are dropped (0 disables)"),
		NewOpt(&c.StorageBackend, "storage-backend", d.StorageBackend, "storage backend: memory, postgres or sqlite"),
		NewOpt(&c.DatabaseURL, "database-url", "", "Postgres connection string"),
		NewOpt(&c.SQLitePath, "sqlite-path", d.SQLitePath, "SQLite database file"),
		NewOpt(&c.BootstrapSchema, "bootstrap-schema", false, "create tables on startup if they do not exist"),
		NewOpt(&c.RequestTimeout, "request-timeout", d.RequestTimeout, "per-request handler timeout"),
		NewOpt(&c.ShutdownTimeout, "shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout"),
		NewOpt(&c.TrustProxyHeaders, "trust-proxy-headers", false, "take the client address from proxy headers"),
		NewOpt(&c.MaxTokenTTL, "max-token-ttl", d.MaxTokenTTL, "longest lifetime of a token issued by /v1/admin/tokens"),
		NewOpt(&c.LogLevel, "log-level", d.LogLevel, "log level: debug, info, warn or error"),
		NewOpt(&c.LogFormat, "log-format", d.LogFormat, "log format: json or console"),
		NewOpt(&c.Dev, "dev", false, "use development secrets when none are configured"),
	}
}

// ApplyDevDefaults fills empty secrets with the development values when Dev is set.
func (c *Config) ApplyDevDefaults() {
	if !c.Dev {
		return
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DevJWTSecret
	}
	if c.MasterKey == "" {
		c.MasterKey = DevMasterKey
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing jwt-secret (JWT_SECRET)"))
	}
	if c.MasterKey == "" {
		errs = append(errs, errors.New("missing master-key (MASTER_KEY)"))
	}
	if err := c.RateLimit().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("storage-backend=postgres requires database-url (DATABASE_URL)"))
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("storage-backend=sqlite requires sqlite-path (SQLITE_PATH)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage-backend %q", c.StorageBackend))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request-timeout must be positive"))
	}
	if c.MaxTokenTTL <= 0 {
		errs = append(errs, errors.New("max-token-ttl must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) RateLimit() ratelimit.Config {
	return ratelimit.Config{
		RefillPerSecond: c.RateLimitPerSecond,
		Burst:           c.RateLimitBurst,
		PruneInterval:   c.RateLimitPruneInterval,
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
