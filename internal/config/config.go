// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	App      AppConfig
}

// DatabaseConfig holds connection settings for PostgreSQL or a local SQLite file.
type DatabaseConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"rentals"`
	Password string `envconfig:"DB_PASSWORD" default:"rentals123"`
	DBName   string `envconfig:"DB_NAME" default:"rentals"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// RawDSN overrides the individual fields when set.
	RawDSN     string `envconfig:"DATABASE_DSN"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"rentals.db"`
	Debug      bool   `envconfig:"DB_DEBUG" default:"false"`
	Retries    int    `envconfig:"DB_CONNECT_RETRIES" default:"5"`
}

// RedisConfig enables the distributed per-unit lease lock when Addr is set.
type RedisConfig struct {
	Addr    string        `envconfig:"REDIS_ADDR"`
	LockTTL time.Duration `envconfig:"LOCK_TTL" default:"30s"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `envconfig:"LOG_FORMAT" default:"text"`
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env        string `envconfig:"APP_ENV" default:"development"`
	Migrations bool   `envconfig:"MIGRATIONS" default:"false"`
	Seed       bool   `envconfig:"DB_SEED" default:"false"`
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IsSQLite reports whether the local SQLite driver is selected.
func (d DatabaseConfig) IsSQLite() bool {
	return strings.EqualFold(d.Driver, "sqlite")
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.App.Env == "production"
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() (*Config, error) {
	var cfg Config
	// Sections are processed separately so keys stay unprefixed.
	for _, section := range []interface{}{&cfg.Database, &cfg.Redis, &cfg.Log, &cfg.App} {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	switch strings.ToLower(cfg.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Database.Retries < 1 {
		cfg.Database.Retries = 1
	}
	return &cfg, nil
}
