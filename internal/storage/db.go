package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"changelens/internal/paths"
)

// connPragmas are applied by the driver to every pooled connection.
var connPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// DB is the embedding cache database of one repository.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// Open opens .changelens/cache.db under repoRoot, creating and migrating it
// as needed.
func Open(repoRoot string, logger *slog.Logger) (*DB, error) {
	return OpenPath(paths.CachePath(repoRoot), logger)
}

// OpenPath opens the cache database at dbPath.
func OpenPath(dbPath string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, logger: logger, path: dbPath}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", dbPath, err)
	}
	return db, nil
}

func dsn(dbPath string) string {
	q := url.Values{"_pragma": connPragmas}
	return dbPath + "?" + q.Encode()
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// WithTx runs fn in a transaction, committing only when fn succeeds.
func (db *DB) WithTx(fn func(*sql.Tx) error) (err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn("Rollback failed",
				"error", err,
				"rollbackError", rbErr,
			)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}
