package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-rentals/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Active leases of one unit may not share a day. Open ends are unbounded.
const leaseExclusionSQL = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'lease_contracts_no_active_overlap') THEN
		ALTER TABLE lease_contracts ADD CONSTRAINT lease_contracts_no_active_overlap
			EXCLUDE USING gist (unit_id WITH =, daterange(start_date, end_date, '[]') WITH &&)
			WHERE (status = 'active');
	END IF;
END
$$;`

// Migrate creates or updates the schema from the models.
// On PostgreSQL it also installs the active-lease exclusion constraint.
func Migrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	if !IsPostgres(db) {
		return nil
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("btree_gist extension: %w", err)
	}
	if err := db.Exec(leaseExclusionSQL).Error; err != nil {
		return fmt.Errorf("lease exclusion constraint: %w", err)
	}
	return nil
}

// RunSQLMigrations applies the embedded SQL migrations to a PostgreSQL database.
func RunSQLMigrations(dsn string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrationNames lists the embedded migration files, for diagnostics.
func MigrationNames() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
