package matching

import (
	"sort"

	"github.com/desertthunder/ytsync/internal/models"
)

// FuzzyThreshold is the minimum similarity accepted by [FuzzyStrategy].
const FuzzyThreshold = 0.70

// Candidate is a destination search result prepared for matching.
type Candidate struct {
	models.DestinationCandidate
	Key  models.NormalizedKey
	Tags []string
}

// Input is everything a [Strategy] may consult for one source track.
//
// Candidates are ordered by rank and never have an empty ID.
type Input struct {
	Track      models.SourceTrack
	Key        models.NormalizedKey
	Tags       []string
	Candidates []Candidate
	Cache      *models.CacheEntry
	Existing   models.IDSet
	// Present holds the destination playlist's listed tracks that carry a title.
	Present []Candidate
}

// Eligible reports whether c may be accepted on text comparison alone.
// A candidate carrying a version tag the track lacks (a live cut of a studio track) is not.
func (in *Input) Eligible(c Candidate) bool {
	for _, tag := range c.Tags {
		if !contains(in.Tags, tag) {
			return false
		}
	}
	return true
}

// Strategy is one step of the matching chain.
type Strategy interface {
	Name() string
	// Match returns the result and true when the strategy accepts the track.
	Match(in *Input) (models.MatchResult, bool)
}

// Matcher evaluates strategies in order and returns the first accepted result.
type Matcher struct {
	normalizer *Normalizer
	strategies []Strategy
}

// NewMatcher builds a matcher running strategies in the given order.
func NewMatcher(normalizer *Normalizer, strategies ...Strategy) *Matcher {
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	return &Matcher{normalizer: normalizer, strategies: strategies}
}

// DefaultMatcher returns the cache, existing-id, playlist-contents, equality and fuzzy chain.
func DefaultMatcher() *Matcher {
	n := NewNormalizer()
	scorer := NewJaroWinklerScorer()
	return NewMatcher(n,
		CacheStrategy{},
		ExistingIDStrategy{},
		NewPlaylistContentsStrategy(scorer, FuzzyThreshold),
		EqualityStrategy{},
		NewFuzzyStrategy(scorer, FuzzyThreshold),
	)
}

// Strategies returns the strategy names in evaluation order.
func (m *Matcher) Strategies() []string {
	names := make([]string, len(m.strategies))
	for i, s := range m.strategies {
		names[i] = s.Name()
	}
	return names
}

// Match decides the destination counterpart of track. It has no side effects.
func (m *Matcher) Match(track models.SourceTrack, candidates []models.DestinationCandidate, entry *models.CacheEntry, existing models.IDSet) models.MatchResult {
	return m.MatchPlaylist(track, candidates, entry, existing, nil)
}

// MatchPlaylist is [Matcher.Match] with the destination playlist's listed tracks, as returned
// by [Matcher.Prepare], available to the strategies.
func (m *Matcher) MatchPlaylist(track models.SourceTrack, candidates []models.DestinationCandidate, entry *models.CacheEntry, existing models.IDSet, present []Candidate) models.MatchResult {
	in := m.prepare(track, candidates, entry, existing)
	for _, c := range present {
		if c.Title != "" && in.Existing.Has(c.ID) {
			in.Present = append(in.Present, c)
		}
	}
	for _, s := range m.strategies {
		if res, ok := s.Match(in); ok {
			res.Strategy = s.Name()
			return res
		}
	}
	return models.NotFound()
}

func (m *Matcher) prepare(track models.SourceTrack, candidates []models.DestinationCandidate, entry *models.CacheEntry, existing models.IDSet) *Input {
	if existing == nil {
		existing = models.NewIDSet()
	}

	return &Input{
		Track:      track,
		Key:        m.normalizer.Key(track.Title, track.Artists),
		Tags:       m.normalizer.VersionTags(track.Title),
		Candidates: m.Prepare(candidates),
		Cache:      entry,
		Existing:   existing,
	}
}

// Prepare normalizes candidates for matching, drops those without an ID and orders the rest by rank.
func (m *Matcher) Prepare(candidates []models.DestinationCandidate) []Candidate {
	prepared := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == "" {
			continue
		}
		prepared = append(prepared, Candidate{
			DestinationCandidate: c,
			Key:                  m.normalizer.Key(c.Title, c.Artists),
			Tags:                 m.normalizer.VersionTags(c.Title),
		})
	}
	sort.SliceStable(prepared, func(i, j int) bool {
		return prepared[i].Rank < prepared[j].Rank
	})
	return prepared
}

// CacheStrategy trusts a cache entry only while its target is still in the destination playlist.
type CacheStrategy struct{}

func (CacheStrategy) Name() string { return "cache" }

func (CacheStrategy) Match(in *Input) (models.MatchResult, bool) {
	if in.Cache == nil || !in.Existing.Has(in.Cache.DestinationTrackID) {
		return models.MatchResult{}, false
	}
	return models.MatchResult{
		Outcome:            models.OutcomeCached,
		DestinationTrackID: in.Cache.DestinationTrackID,
		Confidence:         in.Cache.Confidence,
	}, true
}

// ExistingIDStrategy accepts the highest-ranked candidate already in the destination playlist.
type ExistingIDStrategy struct{}

func (ExistingIDStrategy) Name() string { return "existing-id" }

func (ExistingIDStrategy) Match(in *Input) (models.MatchResult, bool) {
	for _, c := range in.Candidates {
		if in.Existing.Has(c.ID) {
			return exact(c.ID), true
		}
	}
	return models.MatchResult{}, false
}

// PlaylistContentsStrategy compares the track with what the destination playlist already holds,
// so a song present under another ID is not added twice. A normalized-equal entry wins over
// a fuzzy one; ties keep playlist order.
type PlaylistContentsStrategy struct {
	Scorer    Scorer
	Threshold float64
}

func NewPlaylistContentsStrategy(scorer Scorer, threshold float64) PlaylistContentsStrategy {
	return PlaylistContentsStrategy{Scorer: scorer, Threshold: threshold}
}

func (PlaylistContentsStrategy) Name() string { return "playlist-contents" }

func (s PlaylistContentsStrategy) Match(in *Input) (models.MatchResult, bool) {
	for _, c := range in.Present {
		if c.Key == in.Key && in.Eligible(c) {
			return exact(c.ID), true
		}
	}

	best, bestID := -1.0, ""
	for _, c := range in.Present {
		if !in.Eligible(c) {
			continue
		}
		if score := s.Scorer.Score(in.Key, c.Key); score > best {
			best, bestID = score, c.ID
		}
	}
	if bestID == "" || best < s.Threshold {
		return models.MatchResult{}, false
	}
	return models.MatchResult{
		Outcome:            models.OutcomeFuzzy,
		DestinationTrackID: bestID,
		Confidence:         best,
	}, true
}

// EqualityStrategy accepts the highest-ranked candidate whose normalized key equals the track's.
type EqualityStrategy struct{}

func (EqualityStrategy) Name() string { return "normalized-equality" }

func (EqualityStrategy) Match(in *Input) (models.MatchResult, bool) {
	for _, c := range in.Candidates {
		if c.Key == in.Key && in.Eligible(c) {
			return exact(c.ID), true
		}
	}
	return models.MatchResult{}, false
}

// FuzzyStrategy accepts the best scoring candidate when its score reaches Threshold.
// Ties keep the lower rank.
type FuzzyStrategy struct {
	Scorer    Scorer
	Threshold float64
}

func NewFuzzyStrategy(scorer Scorer, threshold float64) FuzzyStrategy {
	return FuzzyStrategy{Scorer: scorer, Threshold: threshold}
}

func (FuzzyStrategy) Name() string { return "fuzzy" }

func (s FuzzyStrategy) Match(in *Input) (models.MatchResult, bool) {
	best, bestID := -1.0, ""
	for _, c := range in.Candidates {
		if !in.Eligible(c) {
			continue
		}
		if score := s.Scorer.Score(in.Key, c.Key); score > best {
			best, bestID = score, c.ID
		}
	}

	if bestID == "" || best < s.Threshold {
		return models.MatchResult{}, false
	}
	return models.MatchResult{
		Outcome:            models.OutcomeFuzzy,
		DestinationTrackID: bestID,
		Confidence:         best,
	}, true
}

func exact(id string) models.MatchResult {
	return models.MatchResult{Outcome: models.OutcomeExact, DestinationTrackID: id, Confidence: 1.0}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
