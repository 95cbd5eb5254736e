package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/noah-isme/hostel-out-api/pkg/config"
)

// Migrate applies every pending up migration found at cfg.MigrationsPath.
func Migrate(cfg config.DatabaseConfig) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Rollback reverts the given number of migrations.
func Rollback(cfg config.DatabaseConfig, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down %d: %w", steps, err)
	}
	return nil
}

// Version reports the applied schema version and whether it is dirty.
func Version(cfg config.DatabaseConfig) (uint, bool, error) {
	m, err := newMigrator(cfg)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrator(cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	path := cfg.MigrationsPath
	if path == "" {
		path = "file://migrations"
	}
	m, err := migrate.New(path, URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("open migrations %s: %w", path, err)
	}
	return m, nil
}
