package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/cache"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	tu "github.com/desertthunder/ytsync/internal/testing"
)

const (
	srcPL  = "37i9dQZF1DXcBWIGoYBM5M"
	destPL = "PLdestination01"
)

var testMapping = models.PlaylistMapping{Name: "test", SourcePlaylistID: srcPL, DestinationPlaylistID: destPL}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func yesterday() models.SourceTrack {
	return tu.Track(srcPL, "sp-yesterday", "Yesterday", "The Beatles")
}

func yesterdayCandidates() []models.DestinationCandidate {
	return tu.Candidates(
		models.DestinationCandidate{ID: "yt-remaster", Title: "Yesterday - Remastered 2009", Artists: []string{"The Beatles"}},
		models.DestinationCandidate{ID: "yt-live", Title: "Yesterday (Live)", Artists: []string{"The Beatles"}},
	)
}

func newFixture() (*tu.FakeDestination, *cache.MatchCache) {
	dest := tu.NewFakeDestination()
	dest.Playlists[destPL] = nil
	return dest, cache.New(nil, quietLogger())
}

func newTestPlanner(dest *tu.FakeDestination, opts ...PlannerOption) *Planner {
	opts = append([]PlannerOption{WithPlannerLogger(quietLogger())}, opts...)
	return NewPlanner(nil, CatalogFetcher{Catalog: dest, Limit: 5}, opts...)
}

func exactCandidate(id string, t models.SourceTrack) models.DestinationCandidate {
	return models.DestinationCandidate{ID: id, Title: t.Title, Artists: t.Artists}
}

func TestPlanner(t *testing.T) {
	ctx := context.Background()

	t.Run("Yesterday fuzzy match is planned", func(t *testing.T) {
		dest, mc := newFixture()
		track := yesterday()
		dest.Results[services.SearchQuery(track)] = yesterdayCandidates()

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.ToAdd) != 1 {
			t.Fatalf("expected 1 planned add, got %d", len(plan.ToAdd))
		}

		add := plan.ToAdd[0]
		if add.DestinationTrackID != "yt-remaster" || add.Match.Outcome != models.OutcomeFuzzy {
			t.Errorf("expected FUZZY yt-remaster, got %+v", add.Match)
		}
		if add.Match.Confidence < 0.85 || add.Match.Confidence >= 1 {
			t.Errorf("expected confidence in [0.85, 1), got %.4f", add.Match.Confidence)
		}
		if plan.Stats.MatchedFuzzy != 1 || plan.Stats.Planned != 1 || plan.Stats.Total != 1 {
			t.Errorf("unexpected stats: %+v", plan.Stats)
		}
		if mc.Len() != 0 {
			t.Error("planning must not write the cache")
		}
	})

	t.Run("Yesterday already present is exact", func(t *testing.T) {
		dest, mc := newFixture()
		track := yesterday()
		dest.Results[services.SearchQuery(track)] = yesterdayCandidates()

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, models.ContentsOf("yt-remaster"), mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.ToAdd) != 0 {
			t.Fatalf("expected nothing to add, got %+v", plan.ToAdd)
		}

		skipped := plan.SkippedBy(models.SkipAlreadyPresent)
		if len(skipped) != 1 {
			t.Fatalf("expected 1 already-present skip, got %+v", plan.Skipped)
		}
		m := skipped[0].Match
		if m == nil || m.Outcome != models.OutcomeExact || m.Confidence != 1.0 || m.DestinationTrackID != "yt-remaster" {
			t.Errorf("expected EXACT 1.0 yt-remaster, got %+v", m)
		}
		if plan.Stats.SkippedAlreadyPresent != 1 || plan.Stats.MatchedExact != 1 {
			t.Errorf("unexpected stats: %+v", plan.Stats)
		}
	})

	t.Run("live version is never accepted for the studio track", func(t *testing.T) {
		dest, mc := newFixture()
		track := yesterday()
		dest.Results[services.SearchQuery(track)] = yesterdayCandidates()[1:]

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.ToAdd) != 0 || len(plan.SkippedBy(models.SkipNotFound)) != 1 || plan.Stats.NotFound != 1 {
			t.Errorf("expected NOT_FOUND, got %+v", plan)
		}
	})

	t.Run("planning is idempotent", func(t *testing.T) {
		dest, mc := newFixture()
		tracks := []models.SourceTrack{
			yesterday(),
			tu.Track(srcPL, "sp-help", "Help!", "The Beatles"),
			tu.Track(srcPL, "sp-none", "Obscure B-Side", "Nobody"),
		}
		dest.Results[services.SearchQuery(tracks[0])] = yesterdayCandidates()
		dest.Results[services.SearchQuery(tracks[1])] = tu.Candidates(exactCandidate("yt-help", tracks[1]))

		p := newTestPlanner(dest)
		first, err := p.Plan(ctx, testMapping, tracks, models.ContentsOf("yt-help"), mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := p.Plan(ctx, testMapping, tracks, models.ContentsOf("yt-help"), mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected identical plans\nfirst:  %+v\nsecond: %+v", first, second)
		}
	})

	t.Run("no destination id is queued twice", func(t *testing.T) {
		dest, mc := newFixture()
		a := tu.Track(srcPL, "sp-a", "Hey Jude", "The Beatles")
		b := tu.Track(srcPL, "sp-b", "Hey Jude", "The Beatles")
		dest.Results[services.SearchQuery(a)] = tu.Candidates(exactCandidate("yt-jude", a))

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{a, b}, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ids := plan.DestinationIDs(); !reflect.DeepEqual(ids, []string{"yt-jude"}) {
			t.Errorf("expected [yt-jude], got %v", ids)
		}
		queued := plan.SkippedBy(models.SkipAlreadyQueued)
		if len(queued) != 1 || queued[0].Track.ID != "sp-b" {
			t.Errorf("expected sp-b to be queued behind sp-a, got %+v", plan.Skipped)
		}
		if plan.Stats.SkippedAlreadyQueued != 1 {
			t.Errorf("unexpected stats: %+v", plan.Stats)
		}
	})

	t.Run("cache entry wins without searching", func(t *testing.T) {
		dest, mc := newFixture()
		track := yesterday()
		dest.Results[services.SearchQuery(track)] = yesterdayCandidates()
		mustRecord(t, mc, models.CacheEntry{
			SourcePlaylistID: srcPL, SourceTrackID: track.ID, DestinationTrackID: "yt-cached",
			Confidence: 0.8, LastConfirmedAt: time.Now(),
		})

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, models.ContentsOf("yt-cached"), mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		skipped := plan.SkippedBy(models.SkipAlreadyPresent)
		if len(skipped) != 1 || skipped[0].Match.Outcome != models.OutcomeCached || skipped[0].Match.Confidence != 0.8 {
			t.Errorf("expected CACHED 0.8, got %+v", plan.Skipped)
		}
		if len(dest.SearchCalls) != 0 {
			t.Errorf("expected no searches, got %v", dest.SearchCalls)
		}
		if plan.Stats.MatchedCached != 1 {
			t.Errorf("unexpected stats: %+v", plan.Stats)
		}
	})

	t.Run("stale cache entry falls back and is superseded", func(t *testing.T) {
		dest, mc := newFixture()
		track := yesterday()
		dest.Results[services.SearchQuery(track)] = yesterdayCandidates()
		stale := models.CacheEntry{
			SourcePlaylistID: srcPL, SourceTrackID: track.ID, DestinationTrackID: "yt-deleted",
			Confidence: 1.0, LastConfirmedAt: time.Now(),
		}
		mustRecord(t, mc, stale)

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.ToAdd) != 1 || plan.ToAdd[0].DestinationTrackID != "yt-remaster" {
			t.Fatalf("expected fallback to search result, got %+v", plan.ToAdd)
		}
		if s := plan.ToAdd[0].Supersedes; s == nil || s.DestinationTrackID != "yt-deleted" {
			t.Errorf("expected stale entry to be superseded, got %+v", s)
		}
		if e, _ := mc.Lookup(srcPL, track.ID); e.DestinationTrackID != "yt-deleted" {
			t.Error("planning must not touch the stale entry")
		}
	})

	t.Run("malformed tracks are skipped", func(t *testing.T) {
		dest, mc := newFixture()
		tracks := []models.SourceTrack{
			tu.Track(srcPL, "", "Local File", "Me"),
			tu.Track(srcPL, "sp-notitle", "", "Me"),
			tu.Track(srcPL, "sp-noartist", "Untitled"),
		}

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, tracks, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.SkippedBy(models.SkipMalformed)) != 3 || plan.Stats.Malformed != 3 {
			t.Errorf("expected 3 malformed, got %+v", plan.Skipped)
		}
		if len(dest.SearchCalls) != 0 {
			t.Errorf("malformed tracks must not be searched, got %v", dest.SearchCalls)
		}
	})

	t.Run("search failure skips only that track", func(t *testing.T) {
		dest, mc := newFixture()
		bad := tu.Track(srcPL, "sp-bad", "Broken", "Someone")
		good := tu.Track(srcPL, "sp-good", "Help!", "The Beatles")
		searchErr := shared.StatusError("search", 503, "")
		dest.SearchErrs[services.SearchQuery(bad)] = searchErr
		dest.Results[services.SearchQuery(good)] = tu.Candidates(exactCandidate("yt-help", good))

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{bad, good}, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		failed := plan.SkippedBy(models.SkipSearchFailed)
		if len(failed) != 1 || !errors.Is(failed[0].Err, searchErr) {
			t.Errorf("expected 1 search failure, got %+v", plan.Skipped)
		}
		if ids := plan.DestinationIDs(); !reflect.DeepEqual(ids, []string{"yt-help"}) {
			t.Errorf("expected [yt-help], got %v", ids)
		}
		if plan.Stats.SearchFailed != 1 {
			t.Errorf("unexpected stats: %+v", plan.Stats)
		}
	})

	t.Run("additions keep source order", func(t *testing.T) {
		dest, mc := newFixture()
		var tracks []models.SourceTrack
		var want []string
		for i := range 20 {
			tr := tu.Track(srcPL, fmt.Sprintf("sp-%02d", i), fmt.Sprintf("Song Number %02d", i), "Band")
			tracks = append(tracks, tr)
			id := fmt.Sprintf("yt-%02d", i)
			dest.Results[services.SearchQuery(tr)] = tu.Candidates(exactCandidate(id, tr))
			want = append(want, id)
		}

		plan, err := newTestPlanner(dest, WithSearchConcurrency(8)).Plan(ctx, testMapping, tracks, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := plan.DestinationIDs(); !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("candidates are bounded", func(t *testing.T) {
		dest, mc := newFixture()
		track := yesterday()
		dest.Results[services.SearchQuery(track)] = tu.Candidates(
			models.DestinationCandidate{ID: "yt-other", Title: "Something", Artists: []string{"The Beatles"}},
			exactCandidate("yt-exact", track),
		)

		plan, err := newTestPlanner(dest, WithMaxResults(1)).Plan(ctx, testMapping, []models.SourceTrack{track}, nil, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.ToAdd) != 0 || plan.Stats.NotFound != 1 {
			t.Errorf("expected only the first candidate to be considered, got %+v", plan)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		dest, mc := newFixture()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		plan, err := newTestPlanner(dest).Plan(cctx, testMapping, []models.SourceTrack{yesterday()}, nil, mc)
		if !errors.Is(err, context.Canceled) || plan != nil {
			t.Errorf("expected context.Canceled and no plan, got %v, %v", plan, err)
		}
	})
}

func TestPlannerPlaylistContents(t *testing.T) {
	ctx := context.Background()
	oldYesterday := models.DestinationCandidate{ID: "yt-old", Title: "Yesterday", Artists: []string{"The Beatles"}}

	t.Run("same song under another id is already present", func(t *testing.T) {
		dest, mc := newFixture()
		track := yesterday()
		dest.Results[services.SearchQuery(track)] = tu.Candidates(
			models.DestinationCandidate{ID: "yt-new", Title: "Yesterday", Artists: []string{"The Beatles"}},
		)

		existing := models.PlaylistContents{oldYesterday}
		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, existing, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.ToAdd) != 0 {
			t.Fatalf("expected nothing to add, got %+v", plan.ToAdd)
		}

		skipped := plan.SkippedBy(models.SkipAlreadyPresent)
		if len(skipped) != 1 || skipped[0].Match.DestinationTrackID != "yt-old" {
			t.Fatalf("expected yt-old already present, got %+v", plan.Skipped)
		}
		if skipped[0].Match.Outcome != models.OutcomeExact || skipped[0].Match.Strategy != "playlist-contents" {
			t.Errorf("expected EXACT from playlist contents, got %+v", skipped[0].Match)
		}
		if len(dest.SearchCalls) != 0 {
			t.Errorf("expected no search for a track already listed, got %v", dest.SearchCalls)
		}
	})

	t.Run("applying confirms the listed track in the cache", func(t *testing.T) {
		dest, mc := newFixture()
		dest.Playlists[destPL] = []string{"yt-old"}
		track := yesterday()

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, models.PlaylistContents{oldYesterday}, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := NewApplier(dest, mc, 50, quietLogger()).Apply(ctx, plan); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		entry, ok := mc.Lookup(srcPL, track.ID)
		if !ok || entry.DestinationTrackID != "yt-old" {
			t.Errorf("expected cache entry for yt-old, got %+v (found=%v)", entry, ok)
		}
		if len(dest.AddCalls) != 0 {
			t.Errorf("expected no adds, got %v", dest.AddCalls)
		}
	})

	t.Run("different song in the playlist is still searched", func(t *testing.T) {
		dest, mc := newFixture()
		track := tu.Track(srcPL, "sp-help", "Help!", "The Beatles")
		dest.Results[services.SearchQuery(track)] = tu.Candidates(exactCandidate("yt-help", track))

		plan, err := newTestPlanner(dest).Plan(ctx, testMapping, []models.SourceTrack{track}, models.PlaylistContents{oldYesterday}, mc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(plan.ToAdd) != 1 || plan.ToAdd[0].DestinationTrackID != "yt-help" {
			t.Errorf("expected yt-help planned, got %+v", plan)
		}
	})
}

func TestPlannerKeysTracksByMapping(t *testing.T) {
	ctx := context.Background()
	dest, mc := newFixture()

	track := yesterday()
	track.PlaylistID = ""
	other := tu.Track("some-other-playlist", "sp-help", "Help!", "The Beatles")
	dest.Results[services.SearchQuery(track)] = yesterdayCandidates()
	dest.Results[services.SearchQuery(other)] = tu.Candidates(exactCandidate("yt-help", other))

	tracks := []models.SourceTrack{track, other}
	plan, err := newTestPlanner(dest).Plan(ctx, testMapping, tracks, nil, mc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tracks[0].PlaylistID != "" {
		t.Error("planning must not modify the caller's tracks")
	}
	for _, add := range plan.ToAdd {
		if add.Track.PlaylistID != srcPL {
			t.Errorf("expected planned track keyed by %s, got %q", srcPL, add.Track.PlaylistID)
		}
	}

	if _, err := NewApplier(dest, mc, 50, quietLogger()).Apply(ctx, plan); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, id := range []string{"sp-yesterday", "sp-help"} {
		if _, ok := mc.Lookup(srcPL, id); !ok {
			t.Errorf("expected cache entry for %s under %s", id, srcPL)
		}
	}
}

func mustRecord(t *testing.T, mc *cache.MatchCache, e models.CacheEntry) {
	t.Helper()
	if _, err := mc.Record(context.Background(), e); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}
}
