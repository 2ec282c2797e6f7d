package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"git.home.luguber.info/inful/cortex/internal/logfields"
)

// migrationFiles contains the PostgreSQL schema migrations.
//
//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded migrations to the PostgreSQL database at dsn.
// An up-to-date schema is not an error.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			slog.Warn("database migrations close", logfields.Error(cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return wrapErr("ping migrations database", err)
	}

	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("initialise pgx v5 driver: %w", err)
	}
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("initialise migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			slog.Warn("database migrations source close", logfields.Error(sourceErr))
		}
		if dbErr != nil {
			slog.Warn("database migrations db close", logfields.Error(dbErr))
		}
	}()

	slog.Info("Running database migrations")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("Database migrations up-to-date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, _, _ := m.Version()
	slog.Info("Database migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}
