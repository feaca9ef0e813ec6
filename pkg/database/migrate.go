package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies any pending SQL migrations from dir. It runs before the
// connection pool is built and must release its connection when done: the
// database handle is capped at the pool size, and a held migration
// connection would starve the pool pre-warm.
func Migrate(p *Postgres, dir string) error {
	driver, err := migratepg.WithInstance(p.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	srcErr, dbErr := m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		return fmt.Errorf("failed to release migration connection: %w", err)
	}

	return nil
}
