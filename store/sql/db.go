package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// OpenDB opens a bun handle for one of the supported drivers. Callers that
// already manage their own *sql.DB should use WrapDB instead.
func OpenDB(driver string, dsn string) (*bun.DB, error) {
	driver = strings.TrimSpace(strings.ToLower(driver))
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", driver, err)
	}
	db, err := WrapDB(driver, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// WrapDB attaches the matching bun dialect to an existing *sql.DB.
func WrapDB(driver string, sqlDB *sql.DB) (*bun.DB, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sqlstore: sql db is required")
	}
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case DriverPostgres:
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	case DriverSQLite, "sqlite":
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}
