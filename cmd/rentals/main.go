package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/diewo77/go-rentals/internal/cache"
	"github.com/diewo77/go-rentals/internal/config"
	"github.com/diewo77/go-rentals/internal/db"
	"github.com/diewo77/go-rentals/internal/locks"
	"github.com/diewo77/go-rentals/internal/logging"
	"github.com/diewo77/go-rentals/internal/services"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&app{out: os.Stdout})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}

// app holds the connections and services shared by every subcommand.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	db    *gorm.DB
	redis *redis.Client

	props   *services.PropertyService
	leases  *services.LeaseService
	charges *services.ChargeService
	dists   *services.DistributionService

	out    io.Writer
	asJSON bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rentals",
		Short:         "Rental property management: leases, unit availability and charges",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.connect(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		migrateCmd(a),
		seedCmd(a),
		leaseCmd(a),
		unitCmd(a),
		buildingCmd(a),
		ownerCmd(a),
		tenantCmd(a),
		distributionCmd(a),
	)
	return root
}

// connect loads configuration and opens the database, plus Redis when
// REDIS_ADDR is set. It is a no-op when the app was already wired.
func (a *app) connect(ctx context.Context) error {
	if a.db != nil {
		a.wire(nil)
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.log == nil {
		a.log = logging.New(cfg.Log)
	}

	a.db, err = db.Open(ctx, cfg.Database, a.log)
	if err != nil {
		return err
	}
	if cfg.App.Migrations {
		if err := a.migrate(); err != nil {
			return err
		}
	}
	if cfg.App.Seed {
		if err := db.Seed(a.db); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	var locker locks.UnitLocker
	if cfg.Redis.Addr != "" {
		a.redis, err = cache.New(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		locker = locks.NewRedisLocker(a.redis, cfg.Redis.LockTTL, cfg.Redis.LockTTL)
		a.log.Info("redis unit locks enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.LockTTL)
	}
	a.wire(locker)
	return nil
}

func (a *app) wire(locker locks.UnitLocker) {
	if a.log == nil {
		a.log = logging.Discard()
	}
	if a.props != nil {
		return
	}
	a.props = services.NewPropertyService(a.db, a.log)
	a.leases = services.NewLeaseService(a.db, locker, a.log)
	a.charges = services.NewChargeService(a.db)
	a.dists = services.NewDistributionService(a.db, a.log)
}

// migrate applies the embedded SQL migrations on PostgreSQL and falls back
// to AutoMigrate on SQLite.
func (a *app) migrate() error {
	if a.cfg == nil || a.cfg.Database.IsSQLite() {
		return db.Migrate(a.db)
	}
	if err := db.RunSQLMigrations(a.cfg.Database.DSN()); err != nil {
		return err
	}
	a.log.Info("sql migrations applied")
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	// Connections injected by tests are owned by the caller.
	if a.db != nil && a.cfg != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.migrate(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Migrations completed successfully")
			return nil
		},
	}
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo owners, buildings, units and tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Seed(a.db); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintln(a.out, "Seeding completed successfully")
			return nil
		},
	}
}

// exitCode maps domain errors to distinct process exit statuses.
func exitCode(err error) int {
	var (
		verr    *services.ValidationError
		overlap *services.OverlapError
		dup     *services.UniquenessError
		ref     *services.ReferenceError
	)
	switch {
	case errors.As(err, &verr):
		return 2
	case errors.As(err, &overlap):
		return 3
	case errors.As(err, &dup):
		return 4
	case errors.As(err, &ref), errors.Is(err, services.ErrNotFound):
		return 5
	case errors.Is(err, locks.ErrNotAcquired):
		return 6
	}
	return 1
}
