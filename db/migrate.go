package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationsPath returns a file:// URL for the migrations directory. MIGRATIONS_PATH
// wins; otherwise the usual locations relative to the working directory are tried.
func migrationsPath() (string, error) {
	candidates := []string{"db/migrations", "migrations", "../db/migrations"}
	if p := os.Getenv("MIGRATIONS_PATH"); p != "" {
		candidates = []string{p}
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return fileURL(path)
		}
	}
	return "", fmt.Errorf("migrations directory not found in any of the expected locations: %v", candidates)
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}
	return "file://" + abs, nil
}

// SourceURL resolves dir to a migration source URL. An empty dir falls back to
// MIGRATIONS_PATH and the default locations.
func SourceURL(dir string) (string, error) {
	if dir == "" {
		return migrationsPath()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("migrations directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("migrations path %s is not a directory", dir)
	}
	return fileURL(dir)
}

func newMigrator(db *sql.DB, sourceURL string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending versioned migrations. Safe to run repeatedly.
func RunMigrations(db *sql.DB) error {
	path, err := migrationsPath()
	if err != nil {
		return err
	}
	return RunMigrationsFromPath(db, path)
}

// RunMigrationsFromPath runs migrations from a custom source URL.
func RunMigrationsFromPath(db *sql.DB, sourceURL string) error {
	m, err := newMigrator(db, sourceURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema is up to date", slog.String("component", "db_migrate"))
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("could not determine migration version", slog.Any("err", err), slog.String("component", "db_migrate"))
		return nil
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d - manual intervention required", version)
	}
	slog.Info("migrations applied successfully", slog.Uint64("version", uint64(version)), slog.String("component", "db_migrate"))
	return nil
}

// MigrateDown rolls back the most recent migration from sourceURL. Development use only.
func MigrateDown(db *sql.DB, sourceURL string) error {
	m, err := newMigrator(db, sourceURL)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, os.ErrNotExist) {
			slog.Info("no migrations to roll back", slog.String("component", "db_migrate"))
			return nil
		}
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	version, _, err := MigrationVersion(db, sourceURL)
	if err != nil {
		return err
	}
	slog.Info("rolled back one migration", slog.Uint64("version", uint64(version)), slog.String("component", "db_migrate"))
	return nil
}

// GetMigrationVersion returns the current migration version and dirty state.
func GetMigrationVersion(db *sql.DB) (version uint, dirty bool, err error) {
	path, err := migrationsPath()
	if err != nil {
		return 0, false, err
	}
	return MigrationVersion(db, path)
}

// MigrationVersion reports the version recorded against sourceURL. A database
// with no applied migrations reports version 0.
func MigrationVersion(db *sql.DB, sourceURL string) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, sourceURL)
	if err != nil {
		return 0, false, err
	}
	v, d, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return v, d, nil
}
