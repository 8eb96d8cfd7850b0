// Package config loads gateway configuration from the environment.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// ServerConfig configures the API listener.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=3000"`
	BasePath        string        `env:"API_BASE_PATH,default=/api"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DocsConfig configures the OpenAPI listener.
type DocsConfig struct {
	Enabled   bool   `env:"DOCS_ENABLED,default=true"`
	Host      string `env:"DOCS_HOST,default=0.0.0.0"`
	Port      int    `env:"DOCS_PORT,default=3005"`
	PublicURL string `env:"DOCS_PUBLIC_URL,default=http://localhost:3000"`
	InfoFile  string `env:"DOCS_INFO_FILE"`
}

// Addr returns host:port.
func (d DocsConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// DatabaseConfig selects and tunes the store backend.
type DatabaseConfig struct {
	Driver          string        `env:"DATABASE_DRIVER,default=memory"`
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=5m"`
	Migrate         bool          `env:"DATABASE_MIGRATE,default=true"`
}

// AuthConfig configures token issuing and password hashing.
type AuthConfig struct {
	JWTSecret   string        `env:"JWT_SECRET,default=jwt-secret"`
	TokenTTL    time.Duration `env:"JWT_TTL,default=1440h"`
	Issuer      string        `env:"JWT_ISSUER,default=marina"`
	BcryptCost  int           `env:"BCRYPT_COST,default=10"`
	AdminEmails string        `env:"ADMIN_EMAILS"`
}

// AdminList returns the normalized admin e-mail allowlist.
func (a AuthConfig) AdminList() []string {
	return SplitList(a.AdminEmails, true)
}

// CacheConfig selects the cacher.
type CacheConfig struct {
	Driver     string        `env:"CACHE_DRIVER,default=memory"`
	RedisURL   string        `env:"REDIS_URL"`
	TokenTTL   time.Duration `env:"CACHE_TOKEN_TTL,default=1h"`
	DefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL,default=30m"`
}

// RateLimitConfig configures per-caller throttling.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED,default=true"`
	RPS     int  `env:"RATE_LIMIT_RPS,default=20"`
	Burst   int  `env:"RATE_LIMIT_BURST,default=40"`
}

// CORSConfig lists allowed origins.
type CORSConfig struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS,default=*"`
}

// Origins returns the allowed origins as a list.
func (c CORSConfig) Origins() []string {
	return SplitList(c.AllowedOrigins, false)
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// Config is the full gateway configuration.
type Config struct {
	Server    ServerConfig
	Docs      DocsConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

// Load reads an optional .env file and decodes the environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return FromEnv()
}

// FromEnv decodes the current environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))

	base := "/" + strings.Trim(strings.TrimSpace(c.Server.BasePath), "/")
	if base == "/" {
		base = ""
	}
	c.Server.BasePath = base
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER %q", c.Cache.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Server.Port)
	}
	if c.Docs.Enabled && (c.Docs.Port <= 0 || c.Docs.Port > 65535) {
		return fmt.Errorf("DOCS_PORT %d out of range", c.Docs.Port)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(raw string, lower bool) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lower {
			part = strings.ToLower(part)
		}
		out = append(out, part)
	}
	return out
}
