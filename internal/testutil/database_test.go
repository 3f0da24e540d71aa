package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/missionhub/internal/database"
)

func TestDSNFromEnvironment(t *testing.T) {
	t.Setenv("TEST_POSTGRES_DSN", "")
	assert.Equal(t, defaultPostgresTestDSN, GetPostgresTestDSN())

	t.Setenv("TEST_POSTGRES_DSN", "postgres://hub:hub@db:5432/hub")
	assert.Equal(t, "postgres://hub:hub@db:5432/hub", GetPostgresTestDSN())

	t.Setenv("TEST_MYSQL_DSN", "user:pass@tcp(db:3306)/hub")
	assert.Equal(t, "user:pass@tcp(db:3306)/hub", GetMySQLTestDSN())

	assert.NotEqual(t, SQLiteTestDSN(), SQLiteTestDSN())
}

func TestForEachDriver_MigratedAndEmpty(t *testing.T) {
	ForEachDriver(t, func(t *testing.T, db *sql.DB, dialect database.Dialect) {
		for _, table := range tables {
			var count int
			require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count), table)
			assert.Zero(t, count, table)
		}

		_, err := db.Exec(dialect.Rebind(
			"INSERT INTO capability_grants (identity, capability, granted_by, granted_at) VALUES (?, ?, ?, ?)"),
			"a3f1c09e", "mission.read", "test", "2026-10-19 08:00:00",
		)
		require.NoError(t, err)

		CleanupDB(t, db)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM capability_grants").Scan(&count))
		assert.Zero(t, count)
	})
}
