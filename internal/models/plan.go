package models

// SkipReason explains why a source track is not in a plan's add-list.
type SkipReason string

const (
	SkipNotFound       SkipReason = "NOT_FOUND"
	SkipAlreadyPresent SkipReason = "ALREADY_PRESENT"
	SkipAlreadyQueued  SkipReason = "ALREADY_QUEUED" // matched a track queued earlier in the same plan
	SkipMalformed      SkipReason = "MALFORMED"
	SkipSearchFailed   SkipReason = "SEARCH_FAILED"
)

// PlannedAdd is a source track whose matched destination track will be added.
type PlannedAdd struct {
	Track              SourceTrack
	DestinationTrackID string
	Match              MatchResult
	Supersedes         *CacheEntry // stale cache entry replaced by this match, if any
}

// SkippedTrack is a source track that will not be added.
//
// Match is set for ALREADY_PRESENT and ALREADY_QUEUED so the apply step can confirm the cache entry.
type SkippedTrack struct {
	Track      SourceTrack
	Reason     SkipReason
	Match      *MatchResult
	Err        error
	Supersedes *CacheEntry
}

// RunStats counts the outcomes of one mapping run.
type RunStats struct {
	Total                 int `json:"total"`
	MatchedCached         int `json:"matched_cached"`
	MatchedExact          int `json:"matched_exact"`
	MatchedFuzzy          int `json:"matched_fuzzy"`
	NotFound              int `json:"not_found"`
	Planned               int `json:"planned"`
	Added                 int `json:"added"`
	AddFailed             int `json:"add_failed"`
	SkippedAlreadyPresent int `json:"skipped_already_present"`
	SkippedAlreadyQueued  int `json:"skipped_already_queued"`
	Malformed             int `json:"malformed"`
	SearchFailed          int `json:"search_failed"`
}

// Merge adds the counts of o into s.
func (s *RunStats) Merge(o RunStats) {
	s.Total += o.Total
	s.MatchedCached += o.MatchedCached
	s.MatchedExact += o.MatchedExact
	s.MatchedFuzzy += o.MatchedFuzzy
	s.NotFound += o.NotFound
	s.Planned += o.Planned
	s.Added += o.Added
	s.AddFailed += o.AddFailed
	s.SkippedAlreadyPresent += o.SkippedAlreadyPresent
	s.SkippedAlreadyQueued += o.SkippedAlreadyQueued
	s.Malformed += o.Malformed
	s.SearchFailed += o.SearchFailed
}

// CountMatch increments the counter for a matched outcome.
func (s *RunStats) CountMatch(o MatchOutcome) {
	switch o {
	case OutcomeCached:
		s.MatchedCached++
	case OutcomeExact:
		s.MatchedExact++
	case OutcomeFuzzy:
		s.MatchedFuzzy++
	case OutcomeNotFound:
		s.NotFound++
	}
}

// SyncPlan is built fresh per run, consumed by the apply step and then discarded.
type SyncPlan struct {
	SourcePlaylistID      string
	DestinationPlaylistID string
	ToAdd                 []PlannedAdd
	Skipped               []SkippedTrack
	Stats                 RunStats
}

// DestinationIDs returns the ordered destination track IDs to add.
func (p *SyncPlan) DestinationIDs() []string {
	ids := make([]string, len(p.ToAdd))
	for i, a := range p.ToAdd {
		ids[i] = a.DestinationTrackID
	}
	return ids
}

// SkippedBy returns the skipped tracks with the given reason, in plan order.
func (p *SyncPlan) SkippedBy(reason SkipReason) []SkippedTrack {
	var out []SkippedTrack
	for _, s := range p.Skipped {
		if s.Reason == reason {
			out = append(out, s)
		}
	}
	return out
}
