package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
)

const defaultBatchSize = 50

// CacheWriter is the write side of the match cache used while applying a plan.
type CacheWriter interface {
	Record(ctx context.Context, entry models.CacheEntry) (bool, error)
	Invalidate(ctx context.Context, sourcePlaylistID, sourceTrackID string) error
}

// Applier executes a [models.SyncPlan] against the destination and records confirmed matches.
type Applier struct {
	dest      services.DestinationCatalog
	cache     CacheWriter
	batchSize int
	logger    *log.Logger
	progress  chan<- ProgressUpdate
	now       func() time.Time
}

// NewApplier creates an Applier. batchSize <= 0 uses the default of 50.
func NewApplier(dest services.DestinationCatalog, cache CacheWriter, batchSize int, logger *log.Logger) *Applier {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Applier{dest: dest, cache: cache, batchSize: batchSize, logger: logger, now: time.Now}
}

// WithProgress returns a copy of a that reports batch progress on ch.
func (a *Applier) WithProgress(ch chan<- ProgressUpdate) *Applier {
	c := *a
	c.progress = ch
	return &c
}

// Apply adds the plan's tracks in batches and returns the final stats.
//
// Tracks matched to something already in the destination are confirmed in the cache first.
// Each added track gets a cache entry; tracks that were queued behind it are confirmed once it
// is added. Cache failures are collected and returned after the adds. Cancellation stops
// between batches. An auth or missing-playlist failure aborts the remaining batches.
func (a *Applier) Apply(ctx context.Context, plan *models.SyncPlan) (models.RunStats, error) {
	stats := plan.Stats
	var cacheErrs []error

	for _, s := range plan.SkippedBy(models.SkipAlreadyPresent) {
		if err := a.confirm(ctx, s.Track, *s.Match, s.Supersedes); err != nil {
			cacheErrs = append(cacheErrs, err)
		}
	}

	added := models.NewIDSet()
	batches := (len(plan.ToAdd) + a.batchSize - 1) / a.batchSize
	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return stats, errors.Join(append([]error{err}, cacheErrs...)...)
		}

		start := b * a.batchSize
		end := min(start+a.batchSize, len(plan.ToAdd))
		batch := plan.ToAdd[start:end]
		sendProgress(a.progress, addTracksUpdate(plan.SourcePlaylistID, b+1, batches))

		ids := make([]string, len(batch))
		for i, add := range batch {
			ids[i] = add.DestinationTrackID
		}

		results, err := a.dest.AddTracks(ctx, plan.DestinationPlaylistID, ids)
		if err != nil {
			stats.AddFailed += len(batch)
			a.logger.Error("add batch failed",
				"destination", plan.DestinationPlaylistID, "batch", b+1, "size", len(batch), "err", err)
			if kind := shared.KindOf(err); kind == shared.KindAuthFailure || kind == shared.KindNotFound {
				stats.AddFailed += len(plan.ToAdd) - end
				return stats, errors.Join(append([]error{fmt.Errorf("failed to add tracks: %w", err)}, cacheErrs...)...)
			}
			continue
		}

		ok := make(map[string]bool, len(results))
		for _, r := range results {
			if r.OK {
				ok[r.ID] = true
			} else if r.Err != nil {
				a.logger.Warn("track not added", "destination", plan.DestinationPlaylistID, "id", r.ID, "err", r.Err)
			}
		}

		for _, add := range batch {
			if !ok[add.DestinationTrackID] {
				stats.AddFailed++
				continue
			}
			stats.Added++
			added.Add(add.DestinationTrackID)
			if err := a.confirm(ctx, add.Track, add.Match, add.Supersedes); err != nil {
				cacheErrs = append(cacheErrs, err)
			}
		}
	}

	for _, s := range plan.SkippedBy(models.SkipAlreadyQueued) {
		if !added.Has(s.Match.DestinationTrackID) {
			continue
		}
		if err := a.confirm(ctx, s.Track, *s.Match, s.Supersedes); err != nil {
			cacheErrs = append(cacheErrs, err)
		}
	}

	return stats, errors.Join(cacheErrs...)
}

// confirm replaces a superseded entry and records the match.
func (a *Applier) confirm(ctx context.Context, track models.SourceTrack, res models.MatchResult, supersedes *models.CacheEntry) error {
	if a.cache == nil {
		return nil
	}

	if supersedes != nil {
		if err := a.cache.Invalidate(ctx, supersedes.SourcePlaylistID, supersedes.SourceTrackID); err != nil {
			return fmt.Errorf("failed to invalidate stale match for %s: %w", track.ID, err)
		}
	}

	entry := models.NewCacheEntry(track, res, a.now())
	if _, err := a.cache.Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record match for %s: %w", track.ID, err)
	}
	return nil
}
