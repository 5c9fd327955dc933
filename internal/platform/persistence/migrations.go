package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

// ErrDirtySchema means an earlier migration failed halfway and needs manual repair
var ErrDirtySchema = errors.New("database schema is dirty")

// RunMigrations applies pending schema migrations and returns the resulting version
func RunMigrations(logger *slog.Logger, cfg *config.PostgresConfig) (uint, error) {
	sourceURL, err := migrationSource(cfg.MigrationsPath)
	if err != nil {
		return 0, err
	}
	if cfg.URL == "" {
		return 0, errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(sourceURL, cfg.URL)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrator", "source_error", sourceErr, "db_error", dbErr)
		}
	}()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	logger.Info("Database schema is up to date", "version", version, "source", sourceURL)
	return version, nil
}

// migrationSource accepts a bare directory or a file:// URL
func migrationSource(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("migrations path cannot be empty")
	}
	if strings.HasPrefix(path, "file://") {
		return path, nil
	}
	return "file://" + path, nil
}
