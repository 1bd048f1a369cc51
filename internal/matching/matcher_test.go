package matching

import (
	"testing"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedScorer returns a preset score per candidate key.
type fixedScorer map[models.NormalizedKey]float64

func (f fixedScorer) Score(_, b models.NormalizedKey) float64 { return f[b] }

func yesterdayTrack() models.SourceTrack {
	return models.SourceTrack{ID: "sp-1", Title: "Yesterday", Artists: []string{"The Beatles"}, PlaylistID: "pl-1"}
}

func yesterdayCandidates() []models.DestinationCandidate {
	return []models.DestinationCandidate{
		{ID: "yt-remaster", Title: "Yesterday - Remastered 2009", Artists: []string{"The Beatles"}, Rank: 0},
		{ID: "yt-live", Title: "Yesterday (Live)", Artists: []string{"The Beatles"}, Rank: 1},
	}
}

func TestMatcherExamples(t *testing.T) {
	m := DefaultMatcher()

	t.Run("fuzzy match on remastered candidate", func(t *testing.T) {
		res := m.Match(yesterdayTrack(), yesterdayCandidates(), nil, models.NewIDSet())

		assert.Equal(t, models.OutcomeFuzzy, res.Outcome)
		assert.Equal(t, "yt-remaster", res.DestinationTrackID)
		assert.GreaterOrEqual(t, res.Confidence, FuzzyThreshold)
		assert.Less(t, res.Confidence, 1.0)
		assert.Equal(t, "fuzzy", res.Strategy)
	})

	t.Run("candidate already present is exact", func(t *testing.T) {
		res := m.Match(yesterdayTrack(), yesterdayCandidates(), nil, models.NewIDSet("yt-remaster"))

		assert.Equal(t, models.OutcomeExact, res.Outcome)
		assert.Equal(t, "yt-remaster", res.DestinationTrackID)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, "existing-id", res.Strategy)
	})

	t.Run("live candidate accepted for a live source", func(t *testing.T) {
		track := yesterdayTrack()
		track.Title = "Yesterday - Live"
		res := m.Match(track, yesterdayCandidates(), nil, nil)

		assert.Equal(t, "yt-live", res.DestinationTrackID)
	})
}

func TestMatcherStrategyOrder(t *testing.T) {
	m := DefaultMatcher()
	now := time.Now()

	t.Run("cache precedence over fresh candidates", func(t *testing.T) {
		entry := &models.CacheEntry{SourcePlaylistID: "pl-1", SourceTrackID: "sp-1", DestinationTrackID: "yt-old", Confidence: 0.82, LastConfirmedAt: now}
		candidates := []models.DestinationCandidate{{ID: "yt-new", Title: "Yesterday", Artists: []string{"The Beatles"}}}

		res := m.Match(yesterdayTrack(), candidates, entry, models.NewIDSet("yt-old"))

		assert.Equal(t, models.OutcomeCached, res.Outcome)
		assert.Equal(t, "yt-old", res.DestinationTrackID)
		assert.Equal(t, 0.82, res.Confidence)
	})

	t.Run("stale cache falls through", func(t *testing.T) {
		entry := &models.CacheEntry{SourcePlaylistID: "pl-1", SourceTrackID: "sp-1", DestinationTrackID: "yt-gone", Confidence: 1, LastConfirmedAt: now}
		candidates := []models.DestinationCandidate{{ID: "yt-new", Title: "Yesterday", Artists: []string{"The Beatles"}}}

		res := m.Match(yesterdayTrack(), candidates, entry, models.NewIDSet())

		assert.Equal(t, models.OutcomeExact, res.Outcome)
		assert.Equal(t, "yt-new", res.DestinationTrackID)
		assert.Equal(t, "normalized-equality", res.Strategy)
	})

	t.Run("cache without candidates", func(t *testing.T) {
		entry := &models.CacheEntry{SourcePlaylistID: "pl-1", SourceTrackID: "sp-1", DestinationTrackID: "yt-old", Confidence: 1, LastConfirmedAt: now}
		res := m.Match(yesterdayTrack(), nil, entry, models.NewIDSet("yt-old"))

		assert.Equal(t, models.OutcomeCached, res.Outcome)
	})

	t.Run("existing id beats normalized equality", func(t *testing.T) {
		candidates := []models.DestinationCandidate{
			{ID: "yt-equal", Title: "Yesterday", Artists: []string{"The Beatles"}, Rank: 0},
			{ID: "yt-present", Title: "Yesterday (Mono)", Artists: []string{"The Beatles"}, Rank: 1},
		}
		res := m.Match(yesterdayTrack(), candidates, nil, models.NewIDSet("yt-present"))

		assert.Equal(t, "yt-present", res.DestinationTrackID)
		assert.Equal(t, models.OutcomeExact, res.Outcome)
	})

	t.Run("normalized equality picks highest rank", func(t *testing.T) {
		candidates := []models.DestinationCandidate{
			{ID: "yt-b", Title: "YESTERDAY", Artists: []string{"the beatles"}, Rank: 3},
			{ID: "yt-a", Title: "Yesterday (2009 Remaster)", Artists: []string{"The Beatles"}, Rank: 1},
		}
		res := m.Match(yesterdayTrack(), candidates, nil, nil)

		assert.Equal(t, "yt-a", res.DestinationTrackID)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("equality respects version guard", func(t *testing.T) {
		candidates := []models.DestinationCandidate{{ID: "yt-live", Title: "Yesterday (Live)", Artists: []string{"The Beatles"}}}
		res := m.Match(yesterdayTrack(), candidates, nil, nil)

		assert.Equal(t, models.OutcomeNotFound, res.Outcome)
		assert.Empty(t, res.DestinationTrackID)
	})

	t.Run("empty candidate ids are discarded", func(t *testing.T) {
		candidates := []models.DestinationCandidate{{ID: "", Title: "Yesterday", Artists: []string{"The Beatles"}}}
		res := m.Match(yesterdayTrack(), candidates, nil, nil)

		assert.Equal(t, models.OutcomeNotFound, res.Outcome)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Equal(t, models.NotFound(), m.Match(yesterdayTrack(), nil, nil, nil))
	})
}

func TestFuzzyThresholdBoundary(t *testing.T) {
	n := NewNormalizer()
	track := models.SourceTrack{ID: "sp-1", Title: "Track", Artists: []string{"Artist"}}
	at := models.DestinationCandidate{ID: "yt-at", Title: "At Threshold", Artists: []string{"X"}, Rank: 0}
	below := models.DestinationCandidate{ID: "yt-below", Title: "Below Threshold", Artists: []string{"X"}, Rank: 0}

	scorer := fixedScorer{
		n.Key(at.Title, at.Artists):       0.70,
		n.Key(below.Title, below.Artists): 0.6999,
	}
	m := NewMatcher(n, NewFuzzyStrategy(scorer, FuzzyThreshold))

	t.Run("exactly at threshold is fuzzy", func(t *testing.T) {
		res := m.Match(track, []models.DestinationCandidate{at}, nil, nil)
		require.Equal(t, models.OutcomeFuzzy, res.Outcome)
		assert.Equal(t, "yt-at", res.DestinationTrackID)
		assert.Equal(t, 0.70, res.Confidence)
	})

	t.Run("just below threshold is not found", func(t *testing.T) {
		res := m.Match(track, []models.DestinationCandidate{below}, nil, nil)
		assert.Equal(t, models.OutcomeNotFound, res.Outcome)
	})
}

func TestFuzzyTieBreak(t *testing.T) {
	n := NewNormalizer()
	track := models.SourceTrack{ID: "sp-1", Title: "Track", Artists: []string{"Artist"}}
	first := models.DestinationCandidate{ID: "yt-first", Title: "One", Artists: []string{"X"}, Rank: 0}
	second := models.DestinationCandidate{ID: "yt-second", Title: "Two", Artists: []string{"X"}, Rank: 1}
	better := models.DestinationCandidate{ID: "yt-better", Title: "Three", Artists: []string{"X"}, Rank: 2}

	t.Run("ties keep lower rank", func(t *testing.T) {
		scorer := fixedScorer{n.Key("One", first.Artists): 0.8, n.Key("Two", second.Artists): 0.8}
		m := NewMatcher(n, NewFuzzyStrategy(scorer, FuzzyThreshold))

		res := m.Match(track, []models.DestinationCandidate{second, first}, nil, nil)
		assert.Equal(t, "yt-first", res.DestinationTrackID)
	})

	t.Run("maximum wins regardless of rank", func(t *testing.T) {
		scorer := fixedScorer{n.Key("One", first.Artists): 0.75, n.Key("Three", better.Artists): 0.9}
		m := NewMatcher(n, NewFuzzyStrategy(scorer, FuzzyThreshold))

		res := m.Match(track, []models.DestinationCandidate{first, better}, nil, nil)
		assert.Equal(t, "yt-better", res.DestinationTrackID)
		assert.Equal(t, 0.9, res.Confidence)
	})
}

type rejectAll struct{}

func (rejectAll) Name() string                            { return "reject" }
func (rejectAll) Match(*Input) (models.MatchResult, bool) { return models.MatchResult{}, false }

type acceptFirst struct{}

func (acceptFirst) Name() string { return "first" }
func (acceptFirst) Match(in *Input) (models.MatchResult, bool) {
	if len(in.Candidates) == 0 {
		return models.MatchResult{}, false
	}
	return models.MatchResult{Outcome: models.OutcomeFuzzy, DestinationTrackID: in.Candidates[0].ID, Confidence: 0.5}, true
}

func TestMatcherCustomChain(t *testing.T) {
	m := NewMatcher(nil, rejectAll{}, acceptFirst{}, EqualityStrategy{})

	assert.Equal(t, []string{"reject", "first", "normalized-equality"}, m.Strategies())

	candidates := []models.DestinationCandidate{
		{ID: "yt-2", Title: "B", Artists: []string{"X"}, Rank: 2},
		{ID: "yt-0", Title: "A", Artists: []string{"X"}, Rank: 0},
	}
	res := m.Match(yesterdayTrack(), candidates, nil, nil)

	assert.Equal(t, "yt-0", res.DestinationTrackID)
	assert.Equal(t, "first", res.Strategy)
}

func TestDefaultMatcherStrategies(t *testing.T) {
	assert.Equal(t, []string{"cache", "existing-id", "playlist-contents", "normalized-equality", "fuzzy"}, DefaultMatcher().Strategies())
}

func TestMatcherPlaylistContents(t *testing.T) {
	m := DefaultMatcher()
	search := []models.DestinationCandidate{{ID: "yt-new", Title: "Yesterday", Artists: []string{"The Beatles"}}}

	playlist := func(tracks ...models.DestinationCandidate) (models.IDSet, []Candidate) {
		contents := models.PlaylistContents(tracks)
		return contents.IDs(), m.Prepare(contents)
	}

	t.Run("same song under another id is exact", func(t *testing.T) {
		existing, present := playlist(models.DestinationCandidate{ID: "yt-old", Title: "Yesterday", Artists: []string{"The Beatles"}})
		res := m.MatchPlaylist(yesterdayTrack(), search, nil, existing, present)

		assert.Equal(t, models.OutcomeExact, res.Outcome)
		assert.Equal(t, "yt-old", res.DestinationTrackID)
		assert.Equal(t, "playlist-contents", res.Strategy)
	})

	t.Run("close title is fuzzy", func(t *testing.T) {
		existing, present := playlist(
			models.DestinationCandidate{ID: "yt-other", Title: "Let It Be", Artists: []string{"The Beatles"}, Rank: 0},
			models.DestinationCandidate{ID: "yt-old", Title: "Yesterday - Remastered 2009", Artists: []string{"The Beatles"}, Rank: 1},
		)
		res := m.MatchPlaylist(yesterdayTrack(), search, nil, existing, present)

		assert.Equal(t, models.OutcomeFuzzy, res.Outcome)
		assert.Equal(t, "yt-old", res.DestinationTrackID)
		assert.GreaterOrEqual(t, res.Confidence, FuzzyThreshold)
	})

	t.Run("other version in playlist falls through to search", func(t *testing.T) {
		existing, present := playlist(models.DestinationCandidate{ID: "yt-live", Title: "Yesterday (Live)", Artists: []string{"The Beatles"}})
		res := m.MatchPlaylist(yesterdayTrack(), search, nil, existing, present)

		assert.Equal(t, "yt-new", res.DestinationTrackID)
		assert.Equal(t, "normalized-equality", res.Strategy)
	})

	t.Run("entries without a title are ignored", func(t *testing.T) {
		contents := models.ContentsOf("yt-old")
		res := m.MatchPlaylist(yesterdayTrack(), search, nil, contents.IDs(), m.Prepare(contents))

		assert.Equal(t, "yt-new", res.DestinationTrackID)
	})

	t.Run("entries outside the existing set are ignored", func(t *testing.T) {
		_, present := playlist(models.DestinationCandidate{ID: "yt-old", Title: "Yesterday", Artists: []string{"The Beatles"}})
		res := m.MatchPlaylist(yesterdayTrack(), search, nil, models.NewIDSet(), present)

		assert.Equal(t, "yt-new", res.DestinationTrackID)
	})

	t.Run("settles without search results", func(t *testing.T) {
		existing, present := playlist(models.DestinationCandidate{ID: "yt-old", Title: "Yesterday", Artists: []string{"The Beatles"}})
		res := m.MatchPlaylist(yesterdayTrack(), nil, nil, existing, present)

		require.True(t, res.Outcome.Matched())
		assert.Equal(t, "yt-old", res.DestinationTrackID)
	})
}
