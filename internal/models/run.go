package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a [SyncRun].
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

// SyncRun records one reconciliation of a single mapping.
type SyncRun struct {
	id                    string
	sequence              int
	sourcePlaylistID      string
	destinationPlaylistID string
	status                RunStatus
	dryRun                bool
	stats                 RunStats
	errorMessage          string
	startedAt             *time.Time
	completedAt           *time.Time
	createdAt             time.Time
	updatedAt             time.Time
}

// NewSyncRun creates a pending run for a mapping.
func NewSyncRun(sequence int, mapping PlaylistMapping, dryRun bool) *SyncRun {
	now := time.Now().UTC()
	return &SyncRun{
		sequence:              sequence,
		sourcePlaylistID:      mapping.SourcePlaylistID,
		destinationPlaylistID: mapping.DestinationPlaylistID,
		status:                RunPending,
		dryRun:                dryRun,
		createdAt:             now,
		updatedAt:             now,
	}
}

func (r *SyncRun) ID() string                    { return r.id }
func (r *SyncRun) Key() string                   { return r.id }
func (r *SyncRun) Sequence() int                 { return r.sequence }
func (r *SyncRun) SourcePlaylistID() string      { return r.sourcePlaylistID }
func (r *SyncRun) DestinationPlaylistID() string { return r.destinationPlaylistID }
func (r *SyncRun) Status() RunStatus             { return r.status }
func (r *SyncRun) DryRun() bool                  { return r.dryRun }
func (r *SyncRun) Stats() RunStats               { return r.stats }
func (r *SyncRun) ErrorMessage() string          { return r.errorMessage }
func (r *SyncRun) StartedAt() *time.Time         { return r.startedAt }
func (r *SyncRun) CompletedAt() *time.Time       { return r.completedAt }
func (r *SyncRun) CreatedAt() time.Time          { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time          { return r.updatedAt }

func (r *SyncRun) SetID(id string)             { r.id = id }
func (r *SyncRun) SetSequence(seq int)         { r.sequence = seq }
func (r *SyncRun) SetUpdatedAt(t time.Time)    { r.updatedAt = t }
func (r *SyncRun) SetCreatedAt(t time.Time)    { r.createdAt = t }
func (r *SyncRun) SetStats(stats RunStats)     { r.stats = stats }
func (r *SyncRun) SetStatus(status RunStatus)  { r.status = status }
func (r *SyncRun) SetErrorMessage(msg string)  { r.errorMessage = msg }
func (r *SyncRun) SetStartedAt(t *time.Time)   { r.startedAt = t }
func (r *SyncRun) SetCompletedAt(t *time.Time) { r.completedAt = t }

// Start marks the run as running.
func (r *SyncRun) Start() {
	now := time.Now().UTC()
	r.status = RunRunning
	r.startedAt = &now
}

// Finish marks the run as completed, failed or aborted depending on err.
func (r *SyncRun) Finish(stats RunStats, err error, aborted bool) {
	now := time.Now().UTC()
	r.stats = stats
	r.completedAt = &now
	switch {
	case aborted:
		r.status = RunAborted
	case err != nil:
		r.status = RunFailed
	default:
		r.status = RunCompleted
	}
	if err != nil {
		r.errorMessage = err.Error()
	}
}

// Validate checks required fields and status values.
func (r *SyncRun) Validate() error {
	if r.sourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}
	switch r.status {
	case RunPending, RunRunning, RunCompleted, RunFailed, RunAborted:
	default:
		return fmt.Errorf("invalid run status: %q", r.status)
	}
	return nil
}
