package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Dialect renders the small set of statements whose syntax differs between drivers.
// Repositories write queries with "?" placeholders and call Rebind before executing.
type Dialect struct {
	driver string
}

// NewDialect returns the dialect for the given driver name.
func NewDialect(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
		return Dialect{driver: driver}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Driver returns the driver name.
func (d Dialect) Driver() string {
	return d.driver
}

// Rebind converts "?" placeholders to the driver's bind style.
func (d Dialect) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Upsert renders an INSERT that updates every non-key column when a row with the
// same key already exists. insertOnly columns are written on insert and left untouched
// on conflict; their placeholders follow the updated columns. The returned statement
// is already rebound.
func (d Dialect) Upsert(table string, keys []string, columns []string, insertOnly ...string) string {
	all := append(append(append([]string{}, keys...), columns...), insertOnly...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")

	var sets []string
	for _, col := range columns {
		if d.driver == DriverMySQL {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", col, col))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ", table, strings.Join(all, ", "), placeholders)
	if d.driver == DriverMySQL {
		query += "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	} else {
		query += fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(sets, ", "))
	}

	return d.Rebind(query)
}
