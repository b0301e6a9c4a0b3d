package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// noExpiry is stored for entries written with a non-positive TTL
const noExpiry = "9999-12-31T23:59:59Z"

// lookupChunkSize keeps IN (...) lists under sqlite's parameter limit
const lookupChunkSize = 500

// EmbeddingEntry is one cached vector. Vector holds the encoded bytes; the
// storage layer does not interpret them.
type EmbeddingEntry struct {
	Key        string
	Model      string
	Dimensions int
	Vector     []byte
}

// EmbeddingCacheStats summarizes the embedding cache table
type EmbeddingCacheStats struct {
	Entries   int `json:"entries"`
	SizeBytes int `json:"sizeBytes"`
	Expired   int `json:"expired"`
}

// EmbeddingCache provides access to the embedding_cache table
type EmbeddingCache struct {
	db  *DB
	now func() time.Time
}

// NewEmbeddingCache creates a new embedding cache backed by db
func NewEmbeddingCache(db *DB) *EmbeddingCache {
	return &EmbeddingCache{db: db, now: time.Now}
}

func (c *EmbeddingCache) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}

// GetMany returns the live entries for the given keys. Missing and expired
// keys are simply absent from the result.
func (c *EmbeddingCache) GetMany(keys []string) (map[string]EmbeddingEntry, error) {
	result := make(map[string]EmbeddingEntry, len(keys))
	now := c.timestamp()

	for start := 0; start < len(keys); start += lookupChunkSize {
		end := start + lookupChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]interface{}, 0, len(chunk)+1)
		for _, k := range chunk {
			args = append(args, k)
		}
		args = append(args, now)

		rows, err := c.db.Query(`
			SELECT key, model, dimensions, vector
			FROM embedding_cache
			WHERE key IN (`+placeholders+`) AND expires_at >= ?
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("embedding cache lookup failed: %w", err)
		}

		for rows.Next() {
			var e EmbeddingEntry
			if err := rows.Scan(&e.Key, &e.Model, &e.Dimensions, &e.Vector); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan embedding cache row: %w", err)
			}
			result[e.Key] = e
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("embedding cache lookup failed: %w", err)
		}
		_ = rows.Close()
	}

	return result, nil
}

// PutMany stores entries in one transaction. Either all entries are written
// or none are. A non-positive ttl means the entries never expire.
func (c *EmbeddingCache) PutMany(entries []EmbeddingEntry, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}

	now := c.now().UTC()
	expiresAt := noExpiry
	if ttl > 0 {
		expiresAt = now.Add(ttl).Format(time.RFC3339)
	}
	createdAt := now.Format(time.RFC3339)

	return c.db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO embedding_cache (key, model, dimensions, vector, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare embedding cache insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, e := range entries {
			if _, err := stmt.Exec(e.Key, e.Model, e.Dimensions, e.Vector, expiresAt, createdAt); err != nil {
				return fmt.Errorf("failed to store embedding %s: %w", e.Key, err)
			}
		}
		return nil
	})
}

// CleanupExpired removes expired entries and returns how many were deleted
func (c *EmbeddingCache) CleanupExpired() (int64, error) {
	res, err := c.db.Exec("DELETE FROM embedding_cache WHERE expires_at < ?", c.timestamp())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup embedding cache: %w", err)
	}
	n, _ := res.RowsAffected()
	c.db.logger.Debug("Cleaned up expired embeddings", "deleted", n)
	return n, nil
}

// Clear removes every entry for a model, or all entries when model is empty
func (c *EmbeddingCache) Clear(model string) error {
	var err error
	if model == "" {
		_, err = c.db.Exec("DELETE FROM embedding_cache")
	} else {
		_, err = c.db.Exec("DELETE FROM embedding_cache WHERE model = ?", model)
	}
	if err != nil {
		return fmt.Errorf("failed to clear embedding cache: %w", err)
	}
	return nil
}

// Stats returns entry counts and stored size
func (c *EmbeddingCache) Stats() (EmbeddingCacheStats, error) {
	var stats EmbeddingCacheStats
	err := c.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(vector)), 0),
			COALESCE(SUM(CASE WHEN expires_at < ? THEN 1 ELSE 0 END), 0)
		FROM embedding_cache
	`, c.timestamp()).Scan(&stats.Entries, &stats.SizeBytes, &stats.Expired)
	if err != nil {
		return stats, fmt.Errorf("failed to get embedding cache stats: %w", err)
	}
	return stats, nil
}
