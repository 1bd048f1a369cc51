package models

import (
	"fmt"
	"strings"
	"time"
)

// MatchOutcome is the decision the matcher reached for one source track.
type MatchOutcome string

const (
	OutcomeCached   MatchOutcome = "CACHED"
	OutcomeExact    MatchOutcome = "EXACT"
	OutcomeFuzzy    MatchOutcome = "FUZZY"
	OutcomeNotFound MatchOutcome = "NOT_FOUND"
)

// Matched reports whether the outcome identifies a destination track.
func (o MatchOutcome) Matched() bool {
	return o == OutcomeCached || o == OutcomeExact || o == OutcomeFuzzy
}

// MatchResult is produced fresh per reconciliation run and is never persisted.
type MatchResult struct {
	Outcome            MatchOutcome
	DestinationTrackID string  // empty when Outcome is NOT_FOUND
	Confidence         float64 // in [0,1]
	Strategy           string  // name of the strategy that accepted the match
}

// NotFound returns the NOT_FOUND result.
func NotFound() MatchResult {
	return MatchResult{Outcome: OutcomeNotFound}
}

// CacheEntry is a confirmed match between a source track and a destination track.
//
// Entries are unique per (SourcePlaylistID, SourceTrackID).
type CacheEntry struct {
	SourcePlaylistID   string
	SourceTrackID      string
	DestinationTrackID string
	Confidence         float64
	LastConfirmedAt    time.Time
}

// CacheKey builds the composite key for a source playlist and track.
func CacheKey(sourcePlaylistID, sourceTrackID string) string {
	return sourcePlaylistID + ":" + sourceTrackID
}

// NewCacheEntry creates a [CacheEntry] confirmed at now from a match decision.
func NewCacheEntry(track SourceTrack, result MatchResult, now time.Time) CacheEntry {
	return CacheEntry{
		SourcePlaylistID:   track.PlaylistID,
		SourceTrackID:      track.ID,
		DestinationTrackID: result.DestinationTrackID,
		Confidence:         result.Confidence,
		LastConfirmedAt:    now.UTC(),
	}
}

func (e CacheEntry) Key() string          { return CacheKey(e.SourcePlaylistID, e.SourceTrackID) }
func (e CacheEntry) UpdatedAt() time.Time { return e.LastConfirmedAt }

// Validate checks the entry has complete keys and a bounded confidence.
func (e CacheEntry) Validate() error {
	if strings.TrimSpace(e.SourcePlaylistID) == "" {
		return fmt.Errorf("source playlist id is required")
	}
	if strings.TrimSpace(e.SourceTrackID) == "" {
		return fmt.Errorf("source track id is required")
	}
	if strings.TrimSpace(e.DestinationTrackID) == "" {
		return fmt.Errorf("destination track id is required")
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("confidence %.4f out of range [0,1]", e.Confidence)
	}
	if e.LastConfirmedAt.IsZero() {
		return fmt.Errorf("last confirmed timestamp is required")
	}
	return nil
}
