package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	// DriverPostgres is the driver name for Postgres-backed stores
	DriverPostgres = "postgres"
	// DriverSQLite is the driver name for SQLite-backed stores
	DriverSQLite = "sqlite"
)

// DB wraps a sql.DB with the dialect it was opened against.
// Repositories write queries with $N placeholders; rebind translates
// them for SQLite, where ?N is the portable positional form.
type DB struct {
	*sql.DB
	driver string
}

// New opens a database connection from a URL. postgres:// and
// postgresql:// URLs use lib/pq; anything else is treated as a SQLite
// file path (an optional sqlite:// prefix is stripped).
func New(databaseURL string) (*DB, error) {
	driver, dsn := resolveDriver(databaseURL)

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// modernc sqlite serializes writes; a single connection avoids
		// SQLITE_BUSY under concurrent updates.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: conn, driver: driver}, nil
}

func resolveDriver(databaseURL string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, databaseURL
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return DriverSQLite, databaseURL
	}
}

// Driver returns the dialect this DB was opened against
func (db *DB) Driver() string {
	return db.driver
}

// rebind translates $N placeholders to the SQLite ?N form
func (db *DB) rebind(query string) string {
	if db.driver == DriverPostgres {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

// lockClause returns the row-locking suffix for read-modify-write
// transactions. SQLite transactions already serialize writers.
func (db *DB) lockClause() string {
	if db.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	owner TEXT NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	tags JSONB NOT NULL DEFAULT '[]',
	degraded BOOLEAN NOT NULL DEFAULT FALSE,
	importance INTEGER,
	urgency INTEGER,
	deadline TIMESTAMPTZ,
	priority DOUBLE PRECISION,
	status TEXT,
	analysis_reason TEXT,
	estimated_minutes INTEGER,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS items_owner_created_idx ON items (owner, created_at DESC);
CREATE INDEX IF NOT EXISTS items_owner_priority_idx ON items (owner, priority DESC);
`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	degraded BOOLEAN NOT NULL DEFAULT FALSE,
	importance INTEGER,
	urgency INTEGER,
	deadline TIMESTAMP,
	priority REAL,
	status TEXT,
	analysis_reason TEXT,
	estimated_minutes INTEGER,
	completed_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS items_owner_created_idx ON items (owner, created_at DESC);
CREATE INDEX IF NOT EXISTS items_owner_priority_idx ON items (owner, priority DESC);
`

// Migrate creates the items table and its indexes. AUTOINCREMENT /
// BIGSERIAL ids are monotonic and never reused after deletion.
func (db *DB) Migrate(ctx context.Context) error {
	schema := schemaPostgres
	if db.driver == DriverSQLite {
		schema = schemaSQLite
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return nil
}
