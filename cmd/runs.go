package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/repositories"
	"github.com/urfave/cli/v3"
)

type runRow struct {
	ID          string          `json:"id"`
	Sequence    int             `json:"sequence"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Status      string          `json:"status"`
	DryRun      bool            `json:"dry_run"`
	Stats       models.RunStats `json:"stats"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RunsList prints recent sync runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewSyncRunRepository(db).List(ctx, map[string]any{
		"source_playlist_id": cmd.String("mapping"),
		"status":             cmd.String("status"),
		"limit":              cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]runRow, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, runRow{
				ID:          run.ID(),
				Sequence:    run.Sequence(),
				Source:      run.SourcePlaylistID(),
				Destination: run.DestinationPlaylistID(),
				Status:      string(run.Status()),
				DryRun:      run.DryRun(),
				Stats:       run.Stats(),
				Error:       run.ErrorMessage(),
				StartedAt:   run.StartedAt(),
				CompletedAt: run.CompletedAt(),
			})
		}
		return r.writeJSON(rows, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Sync runs (%d)", len(runs)))
	for _, run := range runs {
		status := string(run.Status())
		switch run.Status() {
		case models.RunCompleted:
			status = formatter.Styles.OK(status)
		case models.RunFailed:
			status = formatter.Styles.Err(status)
		case models.RunAborted:
			status = formatter.Styles.Warn(status)
		}

		started := "-"
		if t := run.StartedAt(); t != nil {
			started = t.Local().Format("2006-01-02 15:04:05")
		}
		dry := ""
		if run.DryRun() {
			dry = formatter.Styles.Help(" (dry run)")
		}

		s := run.Stats()
		r.writePlain("#%-4d %s %s → %s  %s%s  added %d, present %d, not found %d\n",
			run.Sequence(), started, run.SourcePlaylistID(), run.DestinationPlaylistID(), status, dry,
			s.Added, s.SkippedAlreadyPresent, s.NotFound)
		if msg := run.ErrorMessage(); msg != "" {
			r.writePlain("      %s\n", formatter.Styles.Err(msg))
		}
	}
	return nil
}
