package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const (
	dirPerm  = 0750
	filePerm = 0600

	openPingTimeout = 5 * time.Second
)

// Config maps the database section of config.yaml.
type Config struct {
	// Path to the SQLite file. Parent directories are created on open.
	Path string

	// WALMode turns on write-ahead logging so catalogue reads do not
	// block behind writes.
	WALMode bool

	// BusyTimeout is how many seconds a lock attempt waits before
	// giving up with SQLITE_BUSY.
	BusyTimeout int
}

// DB is the open catalogue database. The embedded sql.DB provides the
// query surface; the wrapper adds migrations and a health check.
type DB struct {
	*sql.DB
	path string
}

// Open opens the catalogue database, creating file and directories on
// first run, and verifies connectivity with a ping.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection: SQLite serialises writes anyway, and it
	// keeps our own goroutines from tripping over SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // already on the error path
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Owner-only: the catalogue mirrors the user's device inventory.
	// The ping above forced the file into existence, so this lands.
	_ = os.Chmod(cfg.Path, filePerm) //nolint:errcheck // best effort

	return db, nil
}

// Close closes the connection. Safe to call on an already-nil DB.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck proves the connection is alive with a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}
