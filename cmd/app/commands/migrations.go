package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/allisson/missionhub/migrations"
)

// RunMigrations applies the embedded migrations of driver to the database at
// connectionString. Returns nil when there is nothing to apply.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	if driver == "memory" {
		logger.Info("memory driver keeps no schema, nothing to migrate")
		return nil
	}
	logger.Info("running database migrations", slog.String("driver", driver))

	files, err := migrations.Source(driver)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	source, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(driver, connectionString))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("failed to close migrate instance",
				slog.Any("source_error", srcErr), slog.Any("database_error", dbErr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// migrateURL turns a database/sql DSN into the URL form golang-migrate expects.
func migrateURL(driver, connectionString string) string {
	switch driver {
	case "mysql":
		if !strings.HasPrefix(connectionString, "mysql://") {
			return "mysql://" + connectionString
		}
	case "sqlite":
		if !strings.HasPrefix(connectionString, "sqlite://") {
			return "sqlite://" + strings.TrimPrefix(connectionString, "file:")
		}
	}
	return connectionString
}
