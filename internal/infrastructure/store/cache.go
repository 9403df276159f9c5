package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/veriscan/backend/internal/domain"
)

// SQLCache implements domain.CacheRepository on the cache_entries
// table. Expiry is enforced in the read predicate; stale rows are
// overwritten on the next Set for the same key.
type SQLCache struct {
	db  *DB
	now func() time.Time
}

// NewSQLCache builds a cache over an open store
func NewSQLCache(db *DB) *SQLCache {
	return &SQLCache{db: db, now: time.Now}
}

// Get returns the cached payload for key, or ErrCacheMiss if absent
// or expired.
func (c *SQLCache) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := c.db.sql.QueryRowContext(ctx,
		`SELECT result_data FROM cache_entries WHERE query_hash = ? AND expires_at > ?`,
		key, c.now().UTC()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return payload, nil
}

// Set stores a payload under key. Last write wins on concurrent
// identical misses.
func (c *SQLCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.db.sql.ExecContext(ctx,
		`INSERT INTO cache_entries(query_hash, result_data, expires_at) VALUES(?,?,?)
		 ON CONFLICT(query_hash) DO UPDATE SET result_data = excluded.result_data, expires_at = excluded.expires_at`,
		key, value, c.now().UTC().Add(ttl))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes a cached entry
func (c *SQLCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.sql.ExecContext(ctx, `DELETE FROM cache_entries WHERE query_hash = ?`, key)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}
