package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ytsync/internal/models"
)

// ErrEntryNotFound is returned when no cache entry exists for a key.
var ErrEntryNotFound = errors.New("cache entry not found")

// MatchRepository stores confirmed matches in the match_cache table.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a new MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `source_playlist_id, source_track_id, destination_track_id, confidence, last_confirmed_at`

// LoadEntries returns every stored entry.
func (r *MatchRepository) LoadEntries(ctx context.Context) ([]models.CacheEntry, error) {
	return r.List(ctx, "")
}

// UpsertEntry inserts entry or replaces the stored one when its confidence is not higher.
// It reports whether a row was written.
func (r *MatchRepository) UpsertEntry(ctx context.Context, entry models.CacheEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO match_cache (` + matchColumns + `)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source_playlist_id, source_track_id) DO UPDATE SET
			destination_track_id = excluded.destination_track_id,
			confidence = excluded.confidence,
			last_confirmed_at = excluded.last_confirmed_at
		WHERE excluded.confidence >= match_cache.confidence
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.SourcePlaylistID,
		entry.SourceTrackID,
		entry.DestinationTrackID,
		entry.Confidence,
		formatTime(entry.LastConfirmedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// DeleteEntry removes the entry for a source track. Deleting a missing entry is not an error.
func (r *MatchRepository) DeleteEntry(ctx context.Context, sourcePlaylistID, sourceTrackID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM match_cache WHERE source_playlist_id = ? AND source_track_id = ?",
		sourcePlaylistID, sourceTrackID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeletePlaylist removes every entry for a source playlist and returns how many were removed.
func (r *MatchRepository) DeletePlaylist(ctx context.Context, sourcePlaylistID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM match_cache WHERE source_playlist_id = ?", sourcePlaylistID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return result.RowsAffected()
}

// Get retrieves the entry for a source track.
func (r *MatchRepository) Get(ctx context.Context, sourcePlaylistID, sourceTrackID string) (models.CacheEntry, error) {
	query := `SELECT ` + matchColumns + ` FROM match_cache WHERE source_playlist_id = ? AND source_track_id = ?`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, sourcePlaylistID, sourceTrackID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, models.CacheKey(sourcePlaylistID, sourceTrackID))
	}
	return entry, err
}

// List returns entries ordered by playlist and track, optionally filtered to one source playlist.
func (r *MatchRepository) List(ctx context.Context, sourcePlaylistID string) ([]models.CacheEntry, error) {
	query := `SELECT ` + matchColumns + ` FROM match_cache`
	args := []any{}
	if sourcePlaylistID != "" {
		query += " WHERE source_playlist_id = ?"
		args = append(args, sourcePlaylistID)
	}
	query += " ORDER BY source_playlist_id, source_track_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// PlaylistCount is the number of cached entries for one source playlist.
type PlaylistCount struct {
	SourcePlaylistID string
	Entries          int
	AvgConfidence    float64
}

// Stats returns per-playlist entry counts.
func (r *MatchRepository) Stats(ctx context.Context) ([]PlaylistCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_playlist_id, COUNT(*), AVG(confidence)
		FROM match_cache
		GROUP BY source_playlist_id
		ORDER BY source_playlist_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache stats: %w", err)
	}
	defer rows.Close()

	var stats []PlaylistCount
	for rows.Next() {
		var pc PlaylistCount
		if err := rows.Scan(&pc.SourcePlaylistID, &pc.Entries, &pc.AvgConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan cache stats: %w", err)
		}
		stats = append(stats, pc)
	}
	return stats, rows.Err()
}

func scanEntry(s scanner) (models.CacheEntry, error) {
	var (
		entry     models.CacheEntry
		confirmed string
	)

	err := s.Scan(&entry.SourcePlaylistID, &entry.SourceTrackID, &entry.DestinationTrackID, &entry.Confidence, &confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, err
	}
	if err != nil {
		return models.CacheEntry{}, fmt.Errorf("failed to scan cache entry: %w", err)
	}

	if entry.LastConfirmedAt, err = parseTime(confirmed); err != nil {
		return models.CacheEntry{}, err
	}
	return entry, nil
}
