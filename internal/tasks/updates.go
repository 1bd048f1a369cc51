package tasks

import (
	"fmt"

	"github.com/desertthunder/ytsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Mapping string // Mapping label, empty for run-wide phases
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ValidateMappings Phase = iota
	PruneMappings
	FetchSource
	FetchDest
	SearchTracks
	ReconcileTracks
	AddTracks
	MappingDone
)

func (p Phase) String() string {
	switch p {
	case ValidateMappings:
		return "validate_mappings"
	case PruneMappings:
		return "prune_mappings"
	case FetchSource:
		return "fetch_source"
	case FetchDest:
		return "fetch_dest"
	case SearchTracks:
		return "search_tracks"
	case ReconcileTracks:
		return "reconcile_tracks"
	case AddTracks:
		return "add_tracks"
	case MappingDone:
		return "mapping_done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func validateUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValidateMappings,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Validating %d mapping(s)...", total),
	}
}

func pruneUpdate(removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PruneMappings,
		Step:    removed,
		Total:   removed,
		Message: fmt.Sprintf("Removed %d mapping(s) with missing destinations", removed),
	}
}

func fetchSourceUpdate(m models.PlaylistMapping, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Mapping: m.Label(),
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist from %s...", source),
	}
}

func fetchDestUpdate(m models.PlaylistMapping, dest string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDest,
		Mapping: m.Label(),
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d source tracks, fetching destination playlist from %s...", tracks, dest),
	}
}

func searchTracksUpdate(mapping string, step, total int, tr *models.SourceTrack) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Mapping: mapping,
			Step:    step,
			Total:   total,
			Message: "Searching for tracks on the destination...",
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Mapping: mapping,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.PrimaryArtist(), tr.Title),
	}
}

func reconcileUpdate(mapping string, plan *models.SyncPlan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileTracks,
		Mapping: mapping,
		Step:    plan.Stats.Total,
		Total:   plan.Stats.Total,
		Message: fmt.Sprintf("Planned %d addition(s), %d skipped", len(plan.ToAdd), len(plan.Skipped)),
		Data:    plan,
	}
}

func addTracksUpdate(mapping string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Mapping: mapping,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding tracks...", step, total),
	}
}

func mappingDoneUpdate(mapping string, stats models.RunStats, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   MappingDone,
			Mapping: mapping,
			Message: fmt.Sprintf("✗ %s: %v", mapping, err),
			Data:    stats,
		}
	}
	return ProgressUpdate{
		Phase:   MappingDone,
		Mapping: mapping,
		Step:    stats.Added,
		Total:   stats.Planned,
		Message: fmt.Sprintf("✓ %s (%d added, %d not found)", mapping, stats.Added, stats.NotFound),
		Data:    stats,
	}
}
