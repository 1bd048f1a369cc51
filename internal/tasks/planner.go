package tasks

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/matching"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSearchConcurrency = 4
	defaultMaxResults        = 5
)

// CandidateFetcher returns ranked destination candidates for a source track.
type CandidateFetcher interface {
	Search(ctx context.Context, track models.SourceTrack) ([]models.DestinationCandidate, error)
}

// CacheReader is the read side of the match cache used while planning.
type CacheReader interface {
	Lookup(sourcePlaylistID, sourceTrackID string) (models.CacheEntry, bool)
}

// CatalogFetcher adapts a [services.DestinationCatalog] to [CandidateFetcher].
type CatalogFetcher struct {
	Catalog services.DestinationCatalog
	Limit   int
}

func (f CatalogFetcher) Search(ctx context.Context, track models.SourceTrack) ([]models.DestinationCandidate, error) {
	return f.Catalog.Search(ctx, services.SearchQuery(track), f.Limit)
}

// Planner builds a [models.SyncPlan] for one mapping. It never writes to the cache or the
// destination, so planning the same inputs twice yields the same plan.
type Planner struct {
	matcher     *matching.Matcher
	fetcher     CandidateFetcher
	concurrency int
	maxResults  int
	logger      *log.Logger
	progress    chan<- ProgressUpdate
}

// PlannerOption configures a [Planner].
type PlannerOption func(*Planner)

// WithSearchConcurrency bounds the number of searches in flight.
func WithSearchConcurrency(n int) PlannerOption {
	return func(p *Planner) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMaxResults bounds the number of candidates considered per track.
func WithMaxResults(n int) PlannerOption {
	return func(p *Planner) {
		if n > 0 {
			p.maxResults = n
		}
	}
}

func WithPlannerLogger(l *log.Logger) PlannerOption {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPlannerProgress reports search progress on ch.
func WithPlannerProgress(ch chan<- ProgressUpdate) PlannerOption {
	return func(p *Planner) { p.progress = ch }
}

// NewPlanner creates a Planner. A nil matcher uses [matching.DefaultMatcher].
func NewPlanner(matcher *matching.Matcher, fetcher CandidateFetcher, opts ...PlannerOption) *Planner {
	if matcher == nil {
		matcher = matching.DefaultMatcher()
	}
	p := &Planner{
		matcher:     matcher,
		fetcher:     fetcher,
		concurrency: defaultSearchConcurrency,
		maxResults:  defaultMaxResults,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type searchResult struct {
	candidates []models.DestinationCandidate
	err        error
}

// Plan decides, for each source track in order, whether it is added, already present or skipped.
//
// Searches run concurrently ahead of the fold and are folded in source order. A track settled by
// its cache entry or by a song already listed in existing is not searched. Every track is keyed
// by the mapping's source playlist. Cancellation is checked between tracks and returns ctx's
// error with no plan.
func (p *Planner) Plan(ctx context.Context, mapping models.PlaylistMapping, tracks []models.SourceTrack, existing models.PlaylistContents, cache CacheReader) (*models.SyncPlan, error) {
	plan := &models.SyncPlan{
		SourcePlaylistID:      mapping.SourcePlaylistID,
		DestinationPlaylistID: mapping.DestinationPlaylistID,
	}
	plan.Stats.Total = len(tracks)

	tracks = slices.Clone(tracks)
	for i := range tracks {
		tracks[i].PlaylistID = mapping.SourcePlaylistID
	}

	present := p.matcher.Prepare(existing)
	existingIDs := existing.IDs()

	entries := make([]*models.CacheEntry, len(tracks))
	needs := make([]bool, len(tracks))
	for i, t := range tracks {
		if t.Malformed() {
			continue
		}
		if cache != nil {
			if e, ok := cache.Lookup(mapping.SourcePlaylistID, t.ID); ok {
				entries[i] = &e
			}
		}
		needs[i] = !p.matcher.MatchPlaylist(t, nil, entries[i], existingIDs, present).Outcome.Matched()
	}

	results, err := p.prefetch(ctx, mapping.Label(), tracks, needs)
	if err != nil {
		return nil, err
	}

	working := existingIDs.Clone()
	queued := models.NewIDSet()
	for i, t := range tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if t.Malformed() {
			plan.Skipped = append(plan.Skipped, models.SkippedTrack{Track: t, Reason: models.SkipMalformed})
			plan.Stats.Malformed++
			continue
		}

		if results[i].err != nil {
			p.logger.Warn("search failed", "mapping", mapping.Label(), "track", t.ID, "title", t.Title, "err", results[i].err)
			plan.Skipped = append(plan.Skipped, models.SkippedTrack{Track: t, Reason: models.SkipSearchFailed, Err: results[i].err})
			plan.Stats.SearchFailed++
			continue
		}

		entry := entries[i]
		res := p.matcher.MatchPlaylist(t, results[i].candidates, entry, working, present)
		plan.Stats.CountMatch(res.Outcome)
		if !res.Outcome.Matched() {
			plan.Skipped = append(plan.Skipped, models.SkippedTrack{Track: t, Reason: models.SkipNotFound})
			continue
		}

		var supersedes *models.CacheEntry
		if entry != nil && entry.DestinationTrackID != res.DestinationTrackID {
			supersedes = entry
		}

		id := res.DestinationTrackID
		switch {
		case queued.Has(id):
			plan.Skipped = append(plan.Skipped, models.SkippedTrack{Track: t, Reason: models.SkipAlreadyQueued, Match: &res, Supersedes: supersedes})
			plan.Stats.SkippedAlreadyQueued++
		case working.Has(id):
			plan.Skipped = append(plan.Skipped, models.SkippedTrack{Track: t, Reason: models.SkipAlreadyPresent, Match: &res, Supersedes: supersedes})
			plan.Stats.SkippedAlreadyPresent++
		default:
			plan.ToAdd = append(plan.ToAdd, models.PlannedAdd{Track: t, DestinationTrackID: id, Match: res, Supersedes: supersedes})
			working.Add(id)
			queued.Add(id)
			plan.Stats.Planned++
		}
	}

	return plan, nil
}

// prefetch runs the searches flagged in needs with bounded concurrency. Results are stored by
// track index. A failed search is recorded on its track and does not stop the others.
func (p *Planner) prefetch(ctx context.Context, label string, tracks []models.SourceTrack, needs []bool) ([]searchResult, error) {
	results := make([]searchResult, len(tracks))

	total := 0
	for _, n := range needs {
		if n {
			total++
		}
	}
	if total == 0 || p.fetcher == nil {
		return results, ctx.Err()
	}

	sendProgress(p.progress, searchTracksUpdate(label, 0, total, nil))

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, t := range tracks {
		if !needs[i] {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			cands, err := p.fetcher.Search(gctx, t)
			if len(cands) > p.maxResults {
				cands = cands[:p.maxResults]
			}
			results[i] = searchResult{candidates: cands, err: err}
			sendProgress(p.progress, searchTracksUpdate(label, int(done.Add(1)), total, &t))
			return nil
		})
	}
	g.Wait()

	return results, ctx.Err()
}
