package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ncx/internal/models"
)

// MatchCacheRepository implements models.Repository[*models.CachedMatch]
// for resolved track pairings reused across runs.
type MatchCacheRepository struct {
	db *sql.DB
}

// NewMatchCacheRepository creates a new MatchCacheRepository with the given database connection
func NewMatchCacheRepository(db *sql.DB) *MatchCacheRepository {
	return &MatchCacheRepository{db: db}
}

// Create inserts a cache entry, replacing any previous entry for the same source track
func (r *MatchCacheRepository) Create(entry *models.CachedMatch) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO match_cache (
			source_id, target_id, confidence, title, artist, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		entry.SourceID(),
		entry.TargetID(),
		entry.Confidence(),
		entry.Title(),
		entry.Artist(),
		entry.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Get retrieves a cache entry by source track id
func (r *MatchCacheRepository) Get(sourceID string) (*models.CachedMatch, error) {
	query := `
		SELECT source_id, target_id, confidence, title, artist, created_at
		FROM match_cache
		WHERE source_id = ?
	`

	var (
		src, targetID, title, artist string
		confidence                   float64
		createdAt                    time.Time
	)

	err := r.db.QueryRow(query, sourceID).Scan(&src, &targetID, &confidence, &title, &artist, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cache entry not found: %s", sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	entry := models.NewCachedMatch(src, targetID, confidence)
	entry.SetTitle(title)
	entry.SetArtist(artist)
	entry.SetCreatedAt(createdAt)
	return entry, nil
}

// Update replaces an existing cache entry
func (r *MatchCacheRepository) Update(entry *models.CachedMatch) error {
	return r.Create(entry)
}

// Delete removes a cache entry by source track id
func (r *MatchCacheRepository) Delete(sourceID string) error {
	if _, err := r.db.Exec("DELETE FROM match_cache WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// List retrieves cache entries matching the given criteria, newest first.
// Supported criteria keys: target_id.
func (r *MatchCacheRepository) List(criteria map[string]any) ([]*models.CachedMatch, error) {
	query := `
		SELECT source_id, target_id, confidence, title, artist, created_at
		FROM match_cache
	`

	var args []any
	if targetID, ok := criteria["target_id"]; ok {
		query += " WHERE target_id = ?"
		args = append(args, targetID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CachedMatch
	for rows.Next() {
		var (
			src, targetID, title, artist string
			confidence                   float64
			createdAt                    time.Time
		)
		if err := rows.Scan(&src, &targetID, &confidence, &title, &artist, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}

		entry := models.NewCachedMatch(src, targetID, confidence)
		entry.SetTitle(title)
		entry.SetArtist(artist)
		entry.SetCreatedAt(createdAt)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Clear removes all cache entries, returning the number deleted
func (r *MatchCacheRepository) Clear() (int, error) {
	result, err := r.db.Exec("DELETE FROM match_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear match cache: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared entries: %w", err)
	}
	return int(deleted), nil
}
