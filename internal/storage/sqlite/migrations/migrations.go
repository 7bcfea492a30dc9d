// Package migrations has the embedded schema of the runs history database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/bulkr/internal/log"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

// Migrator applies the run reports schema to a SQLite database.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator creates a new migrator for db.
func NewMigrator(db *sql.DB, logger log.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	return &Migrator{
		db:     db,
		logger: logger.WithValues(log.Kv{"svc": "sqlite.Migrator"}),
	}, nil
}

// Up applies the pending schema versions, an up to date schema is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	return m.with(ctx, func(mg *migrate.Migrate) error {
		if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("could not apply schema: %w", err)
		}

		v, _, err := mg.Version()
		if err != nil {
			return fmt.Errorf("could not get schema version: %w", err)
		}
		m.logger.Debugf("Runs history schema at version %d", v)

		return nil
	})
}

// Down drops the whole schema, run reports included.
func (m *Migrator) Down(ctx context.Context) error {
	return m.with(ctx, func(mg *migrate.Migrate) error {
		if err := mg.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("could not drop schema: %w", err)
		}

		m.logger.Debugf("Runs history schema dropped")
		return nil
	})
}

// Version returns the applied schema version, 0 when nothing is applied.
func (m *Migrator) Version(ctx context.Context) (version uint, err error) {
	err = m.with(ctx, func(mg *migrate.Migrate) error {
		v, dirty, err := mg.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not get schema version: %w", err)
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty", v)
		}

		version = v
		return nil
	})

	return version, err
}

// with runs fn with a migrate instance backed by the embedded schema files.
func (m *Migrator) with(ctx context.Context, fn func(mg *migrate.Migrate) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(schemaFiles, "sql")
	if err != nil {
		return fmt.Errorf("could not load schema files: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			m.logger.Errorf("could not close schema files: %s", err)
		}
	}()

	mg, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	return fn(mg)
}
