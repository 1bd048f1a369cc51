package mappings

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"golang.org/x/sync/errgroup"
)

const defaultProbeConcurrency = 4

// Classify sets the status of m from the error returned while fetching its destination.
func Classify(m models.PlaylistMapping, fetchErr error) models.PlaylistMapping {
	switch shared.KindOf(fetchErr) {
	case shared.KindNone:
		m.Status = models.MappingHealthy
	case shared.KindNotFound:
		m.Status = models.MappingDestinationMissing
	default:
		m.Status = models.MappingAuthExpired
	}
	return m
}

// FromConfig converts persisted mappings into unclassified [models.PlaylistMapping] values.
func FromConfig(cfg *shared.Config) []models.PlaylistMapping {
	out := make([]models.PlaylistMapping, 0, len(cfg.Mappings))
	for _, m := range cfg.Mappings {
		out = append(out, models.PlaylistMapping{
			Name:                  m.Name,
			SourcePlaylistID:      m.Source,
			DestinationPlaylistID: m.Destination,
		})
	}
	return out
}

// Report is the outcome of validating a set of mappings.
type Report struct {
	Mappings []models.PlaylistMapping // checked mappings, in input order
	Unmapped []models.PlaylistMapping // mappings without a destination, not checked
	AuthErr  error                    // global auth failure, if any
}

// Filter returns the checked mappings with the given status.
func (r *Report) Filter(status models.MappingStatus) []models.PlaylistMapping {
	var out []models.PlaylistMapping
	for _, m := range r.Mappings {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}

func (r *Report) Healthy() []models.PlaylistMapping {
	return r.Filter(models.MappingHealthy)
}

func (r *Report) Missing() []models.PlaylistMapping {
	return r.Filter(models.MappingDestinationMissing)
}

func (r *Report) Expired() []models.PlaylistMapping {
	return r.Filter(models.MappingAuthExpired)
}

// Validator checks mapping destinations.
type Validator struct {
	dest        services.DestinationCatalog
	logger      *log.Logger
	concurrency int
}

// NewValidator creates a Validator. A nil logger uses the default logger.
func NewValidator(dest services.DestinationCatalog, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	return &Validator{dest: dest, logger: logger, concurrency: defaultProbeConcurrency}
}

// Validate checks a single mapping.
func (v *Validator) Validate(ctx context.Context, m models.PlaylistMapping) models.PlaylistMapping {
	_, err := v.dest.FetchPlaylistContents(ctx, m.DestinationPlaylistID)
	m = Classify(m, err)
	if err != nil {
		v.logger.Warn("mapping destination unavailable",
			"mapping", m.Label(), "destination", m.DestinationPlaylistID, "status", m.Status, "err", err)
	}
	return m
}

// ValidateAll checks destination auth once, then checks every mapped destination.
//
// When the auth check fails with an auth error every mapping is marked AUTH_EXPIRED without
// probing. Cancelling ctx returns its error and no report.
func (v *Validator) ValidateAll(ctx context.Context, ms []models.PlaylistMapping) (*Report, error) {
	report := &Report{}

	var mapped []models.PlaylistMapping
	for _, m := range ms {
		if m.Unmapped() {
			report.Unmapped = append(report.Unmapped, m)
			continue
		}
		mapped = append(mapped, m)
	}

	if err := v.dest.CheckAuth(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if shared.KindOf(err) == shared.KindAuthFailure {
			v.logger.Error("destination auth check failed", "service", v.dest.Name(), "err", err)
			report.AuthErr = fmt.Errorf("%s: %w", v.dest.Name(), err)
			for _, m := range mapped {
				m.Status = models.MappingAuthExpired
				report.Mappings = append(report.Mappings, m)
			}
			return report, nil
		}
		v.logger.Warn("destination health check failed, probing mappings anyway", "err", err)
	}

	report.Mappings = make([]models.PlaylistMapping, len(mapped))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, m := range mapped {
		g.Go(func() error {
			report.Mappings[i] = v.Validate(gctx, m)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return report, nil
}

// Prune removes DESTINATION_MISSING mappings from cfg and saves it to path.
//
// The previous file is kept at [shared.BackupPath]. Nothing is written when no mapping is missing.
func Prune(path string, cfg *shared.Config, report *Report) (int, error) {
	missing := report.Missing()
	if len(missing) == 0 {
		return 0, nil
	}

	pairs := make([]shared.MappingConfig, len(missing))
	for i, m := range missing {
		pairs[i] = shared.MappingConfig{Source: m.SourcePlaylistID, Destination: m.DestinationPlaylistID}
	}

	removed := cfg.RemoveMappingPairs(pairs...)
	if removed == 0 {
		return 0, nil
	}
	if err := shared.SaveConfig(path, cfg); err != nil {
		return 0, fmt.Errorf("failed to save pruned config: %w", err)
	}
	return removed, nil
}
