package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDialect(t *testing.T) {
	for _, driver := range []string{DriverPostgres, DriverMySQL, DriverSQLite} {
		d, err := NewDialect(driver)
		require.NoError(t, err)
		assert.Equal(t, driver, d.Driver())
	}

	_, err := NewDialect("oracle")
	assert.Error(t, err)
}

func TestDialect_Rebind(t *testing.T) {
	query := "SELECT body FROM documents WHERE collection = ? AND uid = ?"

	pg, _ := NewDialect(DriverPostgres)
	assert.Equal(t, "SELECT body FROM documents WHERE collection = $1 AND uid = $2", pg.Rebind(query))

	my, _ := NewDialect(DriverMySQL)
	assert.Equal(t, query, my.Rebind(query))

	lite, _ := NewDialect(DriverSQLite)
	assert.Equal(t, query, lite.Rebind(query))
}

func TestDialect_Upsert(t *testing.T) {
	keys := []string{"identity", "capability"}
	cols := []string{"granted_by", "expires_at"}

	t.Run("Success_Postgres", func(t *testing.T) {
		d, _ := NewDialect(DriverPostgres)
		assert.Equal(t,
			"INSERT INTO capability_grants (identity, capability, granted_by, expires_at) VALUES ($1, $2, $3, $4) "+
				"ON CONFLICT (identity, capability) DO UPDATE SET granted_by = excluded.granted_by, expires_at = excluded.expires_at",
			d.Upsert("capability_grants", keys, cols),
		)
	})

	t.Run("Success_SQLite", func(t *testing.T) {
		d, _ := NewDialect(DriverSQLite)
		assert.Equal(t,
			"INSERT INTO capability_grants (identity, capability, granted_by, expires_at) VALUES (?, ?, ?, ?) "+
				"ON CONFLICT (identity, capability) DO UPDATE SET granted_by = excluded.granted_by, expires_at = excluded.expires_at",
			d.Upsert("capability_grants", keys, cols),
		)
	})

	t.Run("Success_MySQL", func(t *testing.T) {
		d, _ := NewDialect(DriverMySQL)
		assert.Equal(t,
			"INSERT INTO capability_grants (identity, capability, granted_by, expires_at) VALUES (?, ?, ?, ?) "+
				"ON DUPLICATE KEY UPDATE granted_by = VALUES(granted_by), expires_at = VALUES(expires_at)",
			d.Upsert("capability_grants", keys, cols),
		)
	})
}

func TestDialect_Upsert_InsertOnly(t *testing.T) {
	d, _ := NewDialect(DriverPostgres)
	assert.Equal(t,
		"INSERT INTO documents (collection, uid, body, created_at) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (collection, uid) DO UPDATE SET body = excluded.body",
		d.Upsert("documents", []string{"collection", "uid"}, []string{"body"}, "created_at"),
	)
}
