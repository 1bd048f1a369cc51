package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

// ErrRunNotFound is returned when no run matches an id.
var ErrRunNotFound = errors.New("sync run not found")

// SyncRunRepository persists [models.SyncRun] history.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

const runColumns = `
	id, sequence, source_playlist_id, destination_playlist_id, status, dry_run,
	stats, error_message, started_at, completed_at, created_at, updated_at
`

// Create inserts a run with a generated ID and sequence.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	stats, err := json.Marshal(run.Stats())
	if err != nil {
		return fmt.Errorf("failed to encode run stats: %w", err)
	}

	id := shared.GenerateID()
	query := `INSERT INTO sync_runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		id,
		sequence,
		run.SourcePlaylistID(),
		run.DestinationPlaylistID(),
		run.Status(),
		run.DryRun(),
		string(stats),
		run.ErrorMessage(),
		formatNullTime(run.StartedAt()),
		formatNullTime(run.CompletedAt()),
		formatTime(run.CreatedAt()),
		formatTime(run.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID.
func (r *SyncRunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE id = ?`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Update writes the mutable fields of a run.
func (r *SyncRunRepository) Update(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	stats, err := json.Marshal(run.Stats())
	if err != nil {
		return fmt.Errorf("failed to encode run stats: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET status = ?, stats = ?, error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		run.Status(),
		string(stats),
		run.ErrorMessage(),
		formatNullTime(run.StartedAt()),
		formatNullTime(run.CompletedAt()),
		formatTime(now),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID())
	}

	return nil
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria: "source_playlist_id" (string), "status" (string), "limit" (int).
func (r *SyncRunRepository) List(ctx context.Context, criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE 1 = 1`
	args := []any{}

	if source, ok := criteria["source_playlist_id"].(string); ok && source != "" {
		query += " AND source_playlist_id = ?"
		args = append(args, source)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var (
		id                    string
		sequence              int
		sourcePlaylistID      string
		destinationPlaylistID string
		status                string
		dryRun                bool
		statsJSON             string
		errorMessage          string
		startedAt             sql.NullString
		completedAt           sql.NullString
		createdAt             string
		updatedAt             string
	)

	err := s.Scan(
		&id, &sequence, &sourcePlaylistID, &destinationPlaylistID, &status, &dryRun,
		&statsJSON, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	var stats models.RunStats
	if err := json.Unmarshal([]byte(statsJSON), &stats); err != nil {
		return nil, fmt.Errorf("failed to decode run stats: %w", err)
	}

	mapping := models.PlaylistMapping{SourcePlaylistID: sourcePlaylistID, DestinationPlaylistID: destinationPlaylistID}
	run := models.NewSyncRun(sequence, mapping, dryRun)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status))
	run.SetStats(stats)
	run.SetErrorMessage(errorMessage)

	started, err := parseNullTime(startedAt)
	if err != nil {
		return nil, err
	}
	run.SetStartedAt(started)

	completed, err := parseNullTime(completedAt)
	if err != nil {
		return nil, err
	}
	run.SetCompletedAt(completed)

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	run.SetCreatedAt(created)

	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	run.SetUpdatedAt(updated)

	return run, nil
}
