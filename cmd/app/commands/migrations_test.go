package commands

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		require.NoError(t, RunMigrations(logger, "memory", ""))
	})

	t.Run("invalid-driver", func(t *testing.T) {
		err := RunMigrations(logger, "invalid", "postgres://localhost")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to load migrations")
	})

	t.Run("invalid-connection-string", func(t *testing.T) {
		err := RunMigrations(logger, "postgres", "invalid-connection-string")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create migrate instance")
	})

	t.Run("sqlite", func(t *testing.T) {
		dsn := "file:" + filepath.Join(t.TempDir(), "missionhub.db")

		require.NoError(t, RunMigrations(logger, "sqlite", dsn))
		// A second run has nothing to apply.
		require.NoError(t, RunMigrations(logger, "sqlite", dsn))
	})
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "mysql://user:pw@tcp(db:3306)/hub", migrateURL("mysql", "user:pw@tcp(db:3306)/hub"))
	assert.Equal(t, "sqlite:///var/lib/hub.db?_pragma=foreign_keys(1)",
		migrateURL("sqlite", "file:/var/lib/hub.db?_pragma=foreign_keys(1)"))
	assert.Equal(t, "postgres://localhost/hub", migrateURL("postgres", "postgres://localhost/hub"))
}
