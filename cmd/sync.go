package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// runSummary is the JSON shape of one reconciled mapping.
type runSummary struct {
	Mapping     string          `json:"mapping"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	RunID       string          `json:"run_id,omitempty"`
	Stats       models.RunStats `json:"stats"`
	Error       string          `json:"error,omitempty"`
}

// SyncRun validates mappings and reconciles every healthy one.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}

	lock, err := tasks.AcquireLock(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer lock.Release()

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	opts := tasks.RunOptions{
		DryRun:     cmd.Bool("dry-run") || cfg.Sync.DryRun,
		Prune:      cmd.Bool("prune"),
		ConfigPath: r.configPath,
		Sources:    cmd.StringSlice("mapping"),
	}

	progress, done := r.logProgress()
	result, err := engine.Run(ctx, opts, progress)
	close(progress)
	<-done

	if result != nil {
		if cmd.Bool("json") {
			if werr := r.writeJSON(summarize(result), true); werr != nil {
				return werr
			}
		} else {
			r.printRun(result, opts.DryRun)
		}
	}
	if err != nil {
		return err
	}

	if failed := result.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d mappings failed", len(failed), len(result.Results))
	}
	return nil
}

// SyncPlan previews what a run would add without touching the destination or the cache.
func (r *Runner) SyncPlan(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	ms, err := engine.Mappings(cmd.StringSlice("mapping"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output != "" && len(ms) != 1 {
		return fmt.Errorf("%w: --output needs exactly one mapping, got %d", shared.ErrInvalidArgument, len(ms))
	}

	for _, m := range ms {
		if m.Unmapped() {
			r.logger.Warn("skipping unmapped playlist", "mapping", m.Label())
			continue
		}

		plan, err := engine.PlanMapping(ctx, m, nil)
		if err != nil {
			return fmt.Errorf("failed to plan %s: %w", m.Label(), err)
		}

		title := "Plan: " + m.Label()
		if output != "" {
			if err := formatter.WritePlanFile(output, format, title, plan); err != nil {
				return err
			}
			r.logger.Info("plan written", "path", output, "format", format)
			return r.writePlain("%s Plan for %s written to %s\n", formatter.Styles.OK("✓"), m.Label(), output)
		}
		if err := formatter.WritePlan(r.output, format, title, plan); err != nil {
			return err
		}
	}
	return nil
}

// logProgress drains engine progress into the debug log until the returned channel is closed.
func (r *Runner) logProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Debug(u.Message, "phase", u.Phase, "mapping", u.Mapping, "step", u.Step, "total", u.Total)
		}
	}()
	return progress, done
}

func (r *Runner) printRun(result *tasks.RunResult, dryRun bool) {
	if result.Report != nil {
		r.writePlainHeader("Mappings")
		for _, m := range result.Report.Mappings {
			r.writePlain("%-24s %s\n", m.Label(), formatter.Styles.Status(m.Status))
		}
		for _, m := range result.Report.Unmapped {
			r.writePlain("%-24s %s\n", m.Label(), formatter.Styles.Status(m.Status))
		}
		if result.Pruned > 0 {
			r.writePlain("%s pruned %d mapping(s)\n", formatter.Styles.Warn("!"), result.Pruned)
		}
	}

	for _, res := range result.Results {
		r.writePlain("\n")
		if res.Err != nil {
			r.writePlain("%s %s: %v\n", formatter.Styles.Err("✗"), res.Mapping.Label(), res.Err)
			continue
		}
		r.writePlain("%s", formatter.Styles.Summary(res.Mapping.Label(), res.Stats, dryRun))
	}

	if len(result.Results) > 1 {
		r.writePlain("\n%s", formatter.Styles.Summary("Total", result.Stats, dryRun))
	}
}

func summarize(result *tasks.RunResult) []runSummary {
	out := make([]runSummary, 0, len(result.Results))
	for _, res := range result.Results {
		s := runSummary{
			Mapping:     res.Mapping.Label(),
			Source:      res.Mapping.SourcePlaylistID,
			Destination: res.Mapping.DestinationPlaylistID,
			Stats:       res.Stats,
		}
		if res.Run != nil {
			s.RunID = res.Run.ID()
		}
		if res.Err != nil {
			s.Error = res.Err.Error()
		}
		out = append(out, s)
	}
	return out
}
