package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MatchCache implements tasks.MatchCache on the match_cache table.
//
// Only found matches are stored, so a miss always means "search again".
type MatchCache struct {
	db *sql.DB
}

// NewMatchCache creates a new MatchCache with the given database connection
func NewMatchCache(db *sql.DB) *MatchCache {
	return &MatchCache{db: db}
}

// Lookup returns the cached destination id and URI for a normalized track key.
func (c *MatchCache) Lookup(key string) (string, string, bool, error) {
	var id, uri string
	err := c.db.QueryRow(`SELECT spotify_id, uri FROM match_cache WHERE track_key = ?`, key).Scan(&id, &uri)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", "", false, nil
	case err != nil:
		return "", "", false, fmt.Errorf("failed to query match cache: %w", err)
	}
	return id, uri, true, nil
}

// Store caches a found match, replacing any earlier entry for key.
func (c *MatchCache) Store(key, id, uri string) error {
	if key == "" || id == "" {
		return nil
	}
	query := `
		INSERT INTO match_cache (track_key, spotify_id, uri, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(track_key) DO UPDATE SET spotify_id = excluded.spotify_id, uri = excluded.uri, cached_at = excluded.cached_at
	`
	if _, err := c.db.Exec(query, key, id, uri, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store match: %w", err)
	}
	return nil
}

// Count returns the number of cached matches.
func (c *MatchCache) Count() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM match_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count match cache: %w", err)
	}
	return n, nil
}

// Clear removes every cached match and returns how many were removed.
func (c *MatchCache) Clear() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM match_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear match cache: %w", err)
	}
	return res.RowsAffected()
}
