// Package db opens the database, applies schema migrations and seeds demo data.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/diewo77/go-rentals/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const retryDelay = 2 * time.Second

// Open connects to the configured database, retrying while the server starts.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var db *gorm.DB
	for i := 1; i <= cfg.Retries; i++ {
		db, err = gorm.Open(dialector, gcfg)
		if err == nil {
			err = ping(ctx, db)
		}
		if err == nil {
			break
		}
		log.Warn("database connection failed", "attempt", i, "of", cfg.Retries, "error", err)
		if i == cfg.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("db: connect after %d attempts: %w", cfg.Retries, err)
	}

	if cfg.IsSQLite() {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("database connected", "driver", db.Dialector.Name(), "dsn", MaskDSN(dsnFor(cfg)))
	return db, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn := dsnFor(cfg)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty DSN, check DATABASE_DSN or DB_* variables")
	}
	if cfg.IsSQLite() {
		return sqlite.Open(dsn), nil
	}
	return postgres.Open(dsn), nil
}

func dsnFor(cfg config.DatabaseConfig) string {
	if cfg.IsSQLite() {
		return SQLiteDSN(cfg.SQLitePath)
	}
	return NormalizeDSN(cfg.DSN())
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// IsPostgres reports whether db talks to PostgreSQL.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
