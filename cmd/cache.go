package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/repositories"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheList prints confirmed matches, optionally for one source playlist.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	entries, err := repositories.NewMatchRepository(db).List(ctx, cmd.String("playlist"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("Match cache is empty.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Match cache (%d)", len(entries)))
	for _, e := range entries {
		r.writePlain("%s/%s → %s  %.4f  %s\n",
			e.SourcePlaylistID, e.SourceTrackID, e.DestinationTrackID, e.Confidence,
			e.LastConfirmedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// CacheInvalidate forgets one entry, or every entry of a source playlist when no track is given.
func (r *Runner) CacheInvalidate(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	playlist := args.Get(0)
	track := args.Get(1)
	if playlist == "" {
		return fmt.Errorf("%w: source playlist id", shared.ErrMissingArgument)
	}

	if track == "" {
		db, err := r.database()
		if err != nil {
			return err
		}
		n, err := repositories.NewMatchRepository(db).DeletePlaylist(ctx, playlist)
		if err != nil {
			return err
		}
		r.logger.Info("invalidated playlist cache", "source_playlist", playlist, "entries", n)
		return r.writePlain("%s Invalidated %d entries for %s\n", formatter.Styles.OK("✓"), n, playlist)
	}

	mc, err := r.matchCache(ctx)
	if err != nil {
		return err
	}
	if _, ok := mc.Lookup(playlist, track); !ok {
		return fmt.Errorf("%w: %s/%s", repositories.ErrEntryNotFound, playlist, track)
	}
	if err := mc.Invalidate(ctx, playlist, track); err != nil {
		return err
	}
	return r.writePlain("%s Invalidated %s/%s\n", formatter.Styles.OK("✓"), playlist, track)
}

// CacheStats prints entry counts per source playlist.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	stats, err := repositories.NewMatchRepository(db).Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	total := 0
	r.writePlainHeader("Match cache")
	for _, s := range stats {
		total += s.Entries
		r.writePlain("%-26s %6d entries  avg %.3f\n", s.SourcePlaylistID, s.Entries, s.AvgConfidence)
	}
	return r.writePlain("%-26s %6d entries\n", "total", total)
}
