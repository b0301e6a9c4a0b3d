package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// migrate brings the database up to currentSchemaVersion. A file without a
// version row, new or left behind by an interrupted first run, gets the
// full schema.
func (db *DB) migrate() error {
	version, err := db.schemaVersion()
	if err != nil {
		return err
	}

	switch {
	case version == currentSchemaVersion:
		return nil
	case version > currentSchemaVersion:
		return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Migrating cache database",
		"path", db.path,
		"from", version,
		"to", currentSchemaVersion,
	)
	return db.WithTx(func(tx *sql.Tx) error {
		for _, stmt := range schemaV1 {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	})
}

// schemaVersion reads the stored version, 0 when there is none.
func (db *DB) schemaVersion() (int, error) {
	var n int
	err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&n)
	if err != nil || n == 0 {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

// schemaV1 holds the embedding cache. key is the hex blake2b-256 of model
// and text; vector is zstd-compressed little-endian float32.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS embedding_cache (
		key TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		vector BLOB NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_embedding_cache_expires_at ON embedding_cache(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_embedding_cache_model ON embedding_cache(model)`,
}
