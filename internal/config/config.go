package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=stok_takip port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
	minSecretLength    = 32
)

type Config struct {
	Environment string
	ServiceName string
	LogLevel    string

	HTTPPort    string
	CORSOrigins string

	DatabaseDriver string // postgres | sqlite
	DatabaseDSN    string

	SessionSecret     string
	SessionCookieName string
	SessionTTL        time.Duration
	CookieSecure      bool
}

// Load reads .env (if present) and the process environment. Invalid
// configuration stops the process.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] .env could not be read: %v", err)
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres connection for production.")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production.")
	}

	return cfg
}

func FromEnv() (*Config, error) {
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL is not a valid duration: %w", err)
	}
	secure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE must be true or false: %w", err)
	}

	return &Config{
		Environment:       getEnv("APP_ENV", "development"),
		ServiceName:       getEnv("SERVICE_NAME", "stok-takip"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		CORSOrigins:       getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		DatabaseDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseDSN:       getEnv("DATABASE_DSN", defaultDSN),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "stok_sid"),
		SessionTTL:        ttl,
		CookieSecure:      secure,
	}, nil
}

func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is not set")
	}
	if len(c.SessionSecret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSecretLength)
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported (postgres, sqlite)", c.DatabaseDriver)
	}
	if c.SessionTTL < time.Minute {
		return errors.New("SESSION_TTL must be at least one minute")
	}
	if c.SessionCookieName == "" {
		return errors.New("SESSION_COOKIE_NAME cannot be empty")
	}
	return nil
}

// AllowedOrigins returns the trimmed, comma separated CORS origins.
func (c *Config) AllowedOrigins() string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return strings.Join(origins, ",")
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
