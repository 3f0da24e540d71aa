// Package migrations embeds the SQL schema migrations for every supported driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgresql/*.sql mysql/*.sql sqlite/*.sql
var files embed.FS

// Source returns the migration files for the given database driver.
func Source(driver string) (fs.FS, error) {
	dir := driver
	if driver == "postgres" {
		dir = "postgresql"
	}
	switch dir {
	case "postgresql", "mysql", "sqlite":
		return fs.Sub(files, dir)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
