package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	copilotmigrations "github.com/goliatone/go-copilot/migrations"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Dialect maps a sql driver name onto the bun dialect the persistence
// client expects. Postgres rides lib/pq, sqlite rides mattn/go-sqlite3.
func Dialect(driver string) (schema.Dialect, error) {
	switch normalizeDriver(driver) {
	case DriverPostgres:
		return pgdialect.New(), nil
	case DriverSQLite:
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported sql driver %q", driver)
	}
}

// MigrationDialect names the migration filesystem that matches a driver.
func MigrationDialect(driver string) (string, error) {
	switch normalizeDriver(driver) {
	case DriverPostgres:
		return copilotmigrations.DialectPostgres, nil
	case DriverSQLite:
		return copilotmigrations.DialectSQLite, nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported sql driver %q", driver)
	}
}

// OpenDB opens a raw connection and resolves the matching bun dialect for a
// supported driver.
func OpenDB(driver string, dsn string) (*sql.DB, schema.Dialect, error) {
	dialect, err := Dialect(driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(normalizeDriver(driver), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	return db, dialect, nil
}

func normalizeDriver(driver string) string {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	case "sqlite3", "sqlite":
		return DriverSQLite
	default:
		return strings.TrimSpace(strings.ToLower(driver))
	}
}
