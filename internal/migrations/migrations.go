// Package migrations owns the datafeeds schema and applies it on startup.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var schemaFiles embed.FS

// RunMigrations brings the datafeeds schema up to the latest version.
// With autoMigrate disabled it only reports where the schema stands.
func RunMigrations(db *sql.DB, autoMigrate bool) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if dirty {
		// The history is a single baseline migration, so forcing back to
		// the recorded version cannot lose anything.
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("recovering interrupted migration at version %d: %w", version, err)
		}
		slog.Warn("Recovered interrupted schema migration", "version", version)
	}

	if !autoMigrate {
		slog.Info("Schema auto-migration disabled", "version", version)
		return nil
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("Datafeeds schema is current", "version", version)
			return nil
		}
		return fmt.Errorf("applying schema migrations: %w", err)
	}

	applied, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("reading schema version after upgrade: %w", err)
	}
	slog.Info("Upgraded datafeeds schema", "from_version", version, "to_version", applied)
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(schemaFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("opening embedded schema files: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("building migrator: %w", err)
	}
	return m, nil
}
