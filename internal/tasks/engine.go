package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/mappings"
	"github.com/desertthunder/ytsync/internal/matching"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"golang.org/x/sync/errgroup"
)

// MatchStore is the match cache as used by a sync run.
type MatchStore interface {
	CacheReader
	CacheWriter
}

// RunRecorder persists run history.
type RunRecorder interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Update(ctx context.Context, run *models.SyncRun) error
}

// RunOptions selects what a sync run does.
type RunOptions struct {
	DryRun     bool
	Prune      bool     // remove DESTINATION_MISSING mappings from the config
	ConfigPath string   // required when Prune is set
	Sources    []string // limit the run to these source playlist ids
}

// MappingResult is the outcome of reconciling one mapping.
type MappingResult struct {
	Mapping models.PlaylistMapping
	Plan    *models.SyncPlan
	Stats   models.RunStats
	Run     *models.SyncRun
	Err     error
}

// RunResult is the outcome of a sync run over all mappings.
type RunResult struct {
	Report  *mappings.Report
	Results []MappingResult
	Pruned  int
	Stats   models.RunStats
}

// Failed returns the mapping results that ended with an error.
func (r *RunResult) Failed() []MappingResult {
	var out []MappingResult
	for _, m := range r.Results {
		if m.Err != nil {
			out = append(out, m)
		}
	}
	return out
}

// SyncEngine reconciles every configured mapping.
type SyncEngine struct {
	cfg       *shared.Config
	source    services.SourceCatalog
	dest      services.DestinationCatalog
	cache     MatchStore
	runs      RunRecorder
	matcher   *matching.Matcher
	validator *mappings.Validator
	logger    *log.Logger
}

// NewSyncEngine creates a SyncEngine. runs may be nil to skip run history.
func NewSyncEngine(cfg *shared.Config, source services.SourceCatalog, dest services.DestinationCatalog, cache MatchStore, runs RunRecorder, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &SyncEngine{
		cfg:       cfg,
		source:    source,
		dest:      dest,
		cache:     cache,
		runs:      runs,
		matcher:   matching.DefaultMatcher(),
		validator: mappings.NewValidator(dest, logger),
		logger:    logger,
	}
}

// WithMatcher replaces the default match strategy chain.
func (e *SyncEngine) WithMatcher(m *matching.Matcher) *SyncEngine {
	e.matcher = m
	return e
}

func (e *SyncEngine) planner(progress chan<- ProgressUpdate) *Planner {
	return NewPlanner(e.matcher,
		CatalogFetcher{Catalog: e.dest, Limit: e.cfg.Sync.MaxSearchResults},
		WithSearchConcurrency(e.cfg.Sync.SearchConcurrency),
		WithMaxResults(e.cfg.Sync.MaxSearchResults),
		WithPlannerLogger(e.logger),
		WithPlannerProgress(progress),
	)
}

// Mappings returns the configured mappings, limited to sources when given.
func (e *SyncEngine) Mappings(sources []string) ([]models.PlaylistMapping, error) {
	all := mappings.FromConfig(e.cfg)
	if len(all) == 0 {
		return nil, shared.ErrNoMappings
	}
	if len(sources) == 0 {
		return all, nil
	}

	want := models.NewIDSet(sources...)
	var out []models.PlaylistMapping
	for _, m := range all {
		if want.Has(m.SourcePlaylistID) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %v", shared.ErrMappingNotFound, sources)
	}
	return out, nil
}

// PlanMapping fetches both playlists and builds a plan without changing anything.
func (e *SyncEngine) PlanMapping(ctx context.Context, m models.PlaylistMapping, progress chan<- ProgressUpdate) (*models.SyncPlan, error) {
	sendProgress(progress, fetchSourceUpdate(m, e.source.Name()))
	tracks, err := e.source.FetchPlaylistTracks(ctx, m.SourcePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source playlist %s: %w", m.SourcePlaylistID, err)
	}
	sendProgress(progress, fetchDestUpdate(m, e.dest.Name(), len(tracks)))
	existing, err := e.dest.FetchPlaylistContents(ctx, m.DestinationPlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch destination playlist %s: %w", m.DestinationPlaylistID, err)
	}

	plan, err := e.planner(progress).Plan(ctx, m, tracks, existing, e.cache)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, reconcileUpdate(m.Label(), plan))
	return plan, nil
}

// Run validates the selected mappings, optionally prunes missing ones and reconciles the healthy ones.
//
// Mappings that share a destination playlist run one after another; the rest run in parallel up
// to sync.parallel_mappings. A failing mapping does not stop the others.
func (e *SyncEngine) Run(ctx context.Context, opts RunOptions, progress chan<- ProgressUpdate) (*RunResult, error) {
	ms, err := e.Mappings(opts.Sources)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, validateUpdate(len(ms)))
	report, err := e.validator.ValidateAll(ctx, ms)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Report: report}
	if opts.Prune {
		removed, err := mappings.Prune(opts.ConfigPath, e.cfg, report)
		if err != nil {
			return result, err
		}
		result.Pruned = removed
		if removed > 0 {
			sendProgress(progress, pruneUpdate(removed))
			e.logger.Info("pruned mappings", "removed", removed, "backup", shared.BackupPath(opts.ConfigPath))
		}
	} else {
		for _, m := range report.Missing() {
			e.logger.Warn("destination playlist missing", "mapping", m.Label(), "destination", m.DestinationPlaylistID)
		}
	}

	if report.AuthErr != nil {
		return result, fmt.Errorf("destination credentials rejected: %w", report.AuthErr)
	}

	healthy := report.Healthy()
	groups := groupByDestination(healthy)
	results := make([][]MappingResult, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Sync.ParallelMappings, 1))
	for i, group := range groups {
		g.Go(func() error {
			for _, m := range group {
				results[i] = append(results[i], e.runMapping(gctx, m, opts.DryRun, progress))
			}
			return nil
		})
	}
	g.Wait()

	for _, rs := range results {
		for _, r := range rs {
			result.Results = append(result.Results, r)
			result.Stats.Merge(r.Stats)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *SyncEngine) runMapping(ctx context.Context, m models.PlaylistMapping, dryRun bool, progress chan<- ProgressUpdate) MappingResult {
	logger := shared.WithLogger(e.logger, "mapping", m.Label())
	res := MappingResult{Mapping: m, Run: models.NewSyncRun(0, m, dryRun)}

	res.Run.Start()
	if e.runs != nil {
		if err := e.runs.Create(ctx, res.Run); err != nil {
			logger.Warn("failed to record run", "err", err)
		}
	}

	res.Plan, res.Err = e.PlanMapping(ctx, m, progress)
	if res.Err == nil {
		res.Stats = res.Plan.Stats
		if !dryRun {
			applier := NewApplier(e.dest, e.cache, e.cfg.Sync.BatchSize, logger).WithProgress(progress)
			res.Stats, res.Err = applier.Apply(ctx, res.Plan)
		}
	}

	aborted := errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)
	res.Run.Finish(res.Stats, res.Err, aborted)
	if e.runs != nil && res.Run.ID() != "" {
		if err := e.runs.Update(context.WithoutCancel(ctx), res.Run); err != nil {
			logger.Warn("failed to update run", "err", err)
		}
	}

	if res.Err != nil {
		logger.Error("mapping failed", "err", res.Err)
	} else {
		logger.Info("mapping reconciled",
			"planned", res.Stats.Planned, "added", res.Stats.Added, "present", res.Stats.SkippedAlreadyPresent,
			"not_found", res.Stats.NotFound, "dry_run", dryRun)
	}
	sendProgress(progress, mappingDoneUpdate(m.Label(), res.Stats, res.Err))
	return res
}

// groupByDestination keeps input order within and across groups.
func groupByDestination(ms []models.PlaylistMapping) [][]models.PlaylistMapping {
	index := map[string]int{}
	var groups [][]models.PlaylistMapping
	for _, m := range ms {
		i, ok := index[m.DestinationPlaylistID]
		if !ok {
			i = len(groups)
			index[m.DestinationPlaylistID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}
