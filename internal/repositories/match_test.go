package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ytsync/internal/cache"
	"github.com/desertthunder/ytsync/internal/models"
)

var _ cache.Store = (*MatchRepository)(nil)

func testEntry(playlist, track, dest string, confidence float64) models.CacheEntry {
	return models.CacheEntry{
		SourcePlaylistID:   playlist,
		SourceTrackID:      track,
		DestinationTrackID: dest,
		Confidence:         confidence,
		LastConfirmedAt:    time.Date(2025, 6, 1, 8, 30, 15, 123456789, time.UTC),
	}
}

func TestMatchRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		repo := NewMatchRepository(setupTestDB(t))
		want := testEntry("pl-1", "t1", "yt-1", 0.8659123456789)

		written, err := repo.UpsertEntry(ctx, want)
		if err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		if !written {
			t.Fatal("expected first upsert to write")
		}

		got, err := repo.Get(ctx, "pl-1", "t1")
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if got.DestinationTrackID != want.DestinationTrackID || got.Confidence != want.Confidence {
			t.Errorf("expected %+v, got %+v", want, got)
		}
		if !got.LastConfirmedAt.Equal(want.LastConfirmedAt) {
			t.Errorf("expected timestamp %s, got %s", want.LastConfirmedAt, got.LastConfirmedAt)
		}
	})

	t.Run("upsert never downgrades", func(t *testing.T) {
		repo := NewMatchRepository(setupTestDB(t))

		if _, err := repo.UpsertEntry(ctx, testEntry("pl-1", "t1", "yt-1", 0.9)); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		written, err := repo.UpsertEntry(ctx, testEntry("pl-1", "t1", "yt-2", 0.7))
		if err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		if written {
			t.Error("lower confidence must not be written")
		}

		written, err = repo.UpsertEntry(ctx, testEntry("pl-1", "t1", "yt-3", 0.9))
		if err != nil || !written {
			t.Fatalf("equal confidence must be written, got %v %v", written, err)
		}

		got, _ := repo.Get(ctx, "pl-1", "t1")
		if got.DestinationTrackID != "yt-3" {
			t.Errorf("expected yt-3, got %s", got.DestinationTrackID)
		}
	})

	t.Run("validation", func(t *testing.T) {
		repo := NewMatchRepository(setupTestDB(t))
		if _, err := repo.UpsertEntry(ctx, testEntry("pl-1", "t1", "", 1)); err == nil {
			t.Error("expected validation error for empty destination")
		}
	})

	t.Run("delete", func(t *testing.T) {
		repo := NewMatchRepository(setupTestDB(t))
		_, _ = repo.UpsertEntry(ctx, testEntry("pl-1", "t1", "yt-1", 1))

		if err := repo.DeleteEntry(ctx, "pl-1", "t1"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(ctx, "pl-1", "t1"); !errors.Is(err, ErrEntryNotFound) {
			t.Errorf("expected ErrEntryNotFound, got %v", err)
		}
		if err := repo.DeleteEntry(ctx, "pl-1", "t1"); err != nil {
			t.Errorf("deleting a missing entry should succeed: %v", err)
		}
	})

	t.Run("list, stats and playlist delete", func(t *testing.T) {
		repo := NewMatchRepository(setupTestDB(t))
		for _, e := range []models.CacheEntry{
			testEntry("pl-2", "t1", "yt-a", 1),
			testEntry("pl-1", "t2", "yt-b", 0.8),
			testEntry("pl-1", "t1", "yt-c", 0.9),
		} {
			if _, err := repo.UpsertEntry(ctx, e); err != nil {
				t.Fatalf("failed to upsert: %v", err)
			}
		}

		all, err := repo.LoadEntries(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(all) != 3 || all[0].SourcePlaylistID != "pl-1" || all[0].SourceTrackID != "t1" {
			t.Errorf("unexpected ordering: %+v", all)
		}

		pl1, err := repo.List(ctx, "pl-1")
		if err != nil || len(pl1) != 2 {
			t.Fatalf("expected 2 entries for pl-1, got %d (%v)", len(pl1), err)
		}

		stats, err := repo.Stats(ctx)
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}
		if len(stats) != 2 || stats[0].Entries != 2 {
			t.Errorf("unexpected stats: %+v", stats)
		}

		removed, err := repo.DeletePlaylist(ctx, "pl-1")
		if err != nil || removed != 2 {
			t.Errorf("expected 2 removed, got %d (%v)", removed, err)
		}
	})

	t.Run("backs the match cache", func(t *testing.T) {
		repo := NewMatchRepository(setupTestDB(t))
		_, _ = repo.UpsertEntry(ctx, testEntry("pl-1", "t1", "yt-1", 0.95))

		c := cache.New(repo, nil)
		if err := c.Load(ctx); err != nil {
			t.Fatalf("failed to load cache: %v", err)
		}
		if _, ok := c.Lookup("pl-1", "t1"); !ok {
			t.Fatal("expected entry loaded from database")
		}

		if ok, err := c.Record(ctx, testEntry("pl-1", "t2", "yt-2", 0.75)); err != nil || !ok {
			t.Fatalf("failed to record: %v", err)
		}
		if _, err := repo.Get(ctx, "pl-1", "t2"); err != nil {
			t.Errorf("recorded entry should be durable immediately: %v", err)
		}
	})
}
