package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Supported values for the database driver setting.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict means the card changed between being read and written,
	// usually because the same card was reviewed twice at once.
	ErrConflict = errors.New("storage: concurrent update")
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn     *sqlx.DB
	driver   string
	migrated int
}

// Open creates a new database connection and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer; one connection also keeps the
		// foreign_keys pragma in effect for every statement.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn, driver: driver}
	n, err := db.migrate(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	db.migrated = n
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// MigrationsApplied reports how many migrations Open applied.
func (db *DB) MigrationsApplied() int {
	return db.migrated
}

// Driver returns the database driver name.
func (db *DB) Driver() string {
	return db.driver
}

// rowLock is the clause that locks selected rows until the transaction
// ends. sqlite has no row locks; its single connection serializes
// transactions instead.
func (db *DB) rowLock() string {
	if db.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (db *DB) rebind(query string) string {
	return db.conn.Rebind(query)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
