package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/mappings"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// playlistNamer is implemented by source catalogs that can look up a playlist's display name.
type playlistNamer interface {
	PlaylistName(ctx context.Context, playlistID string) (string, error)
}

// MappingsList prints the configured mappings.
func (r *Runner) MappingsList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(cfg.Mappings, true)
	}

	if len(cfg.Mappings) == 0 {
		return r.writePlain("No mappings configured. Add one with 'ytsync mappings add'.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Mappings (%d)", len(cfg.Mappings)))
	for _, m := range cfg.Mappings {
		dest := m.Destination
		if dest == "" {
			dest = formatter.Styles.Help("(unmapped)")
		}
		r.writePlain("%-24s %s → %s\n", m.Name, m.Source, dest)
	}
	return nil
}

// MappingsAdd appends a mapping and saves the config.
func (r *Runner) MappingsAdd(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}

	m := shared.MappingConfig{
		Name:        cmd.String("name"),
		Source:      cmd.String("source"),
		Destination: cmd.String("destination"),
	}

	if m.Name == "" && cmd.Bool("fetch-name") {
		m.Name = r.lookupPlaylistName(ctx, m.Source)
	}

	if err := cfg.AddMapping(m); err != nil {
		return err
	}
	if err := r.saveConfig(); err != nil {
		return err
	}

	r.logger.Info("added mapping", "source", m.Source, "destination", m.Destination)
	return r.writePlain("%s Added mapping %s → %s\n", formatter.Styles.OK("✓"), m.Source, m.Destination)
}

func (r *Runner) lookupPlaylistName(ctx context.Context, source string) string {
	catalog, err := r.sourceCatalog(ctx)
	if err != nil {
		r.logger.Warn("cannot look up playlist name", "err", err)
		return ""
	}
	namer, ok := catalog.(playlistNamer)
	if !ok {
		return ""
	}
	name, err := namer.PlaylistName(ctx, source)
	if err != nil {
		r.logger.Warn("cannot look up playlist name", "source", source, "err", err)
		return ""
	}
	return name
}

// MappingsRemove deletes the mappings for the given source playlist ids.
func (r *Runner) MappingsRemove(ctx context.Context, cmd *cli.Command) error {
	sources := cmd.Args().Slice()
	if len(sources) == 0 {
		return fmt.Errorf("%w: at least one source playlist id", shared.ErrMissingArgument)
	}

	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}

	removed := cfg.RemoveMappings(sources...)
	if removed == 0 {
		return fmt.Errorf("%w: %v", shared.ErrMappingNotFound, sources)
	}
	if err := r.saveConfig(); err != nil {
		return err
	}
	return r.writePlain("%s Removed %d mapping(s)\n", formatter.Styles.OK("✓"), removed)
}

// MappingsValidate checks every mapped destination and optionally prunes missing ones.
func (r *Runner) MappingsValidate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	dest, err := r.destCatalog(ctx)
	if err != nil {
		return err
	}

	ms := mappings.FromConfig(cfg)
	if len(ms) == 0 {
		return shared.ErrNoMappings
	}

	report, err := mappings.NewValidator(dest, r.logger).ValidateAll(ctx, ms)
	if err != nil {
		return err
	}

	r.writePlainHeader("Mapping health")
	for _, m := range report.Mappings {
		r.writePlain("%-24s %-26s %s\n", m.Label(), m.DestinationPlaylistID, formatter.Styles.Status(m.Status))
	}
	for _, m := range report.Unmapped {
		r.writePlain("%-24s %-26s %s\n", m.Label(), "-", formatter.Styles.Status(m.Status))
	}

	if report.AuthErr != nil {
		r.writePlain("\n%s destination credentials rejected, nothing was pruned\n", formatter.Styles.Err("✗"))
		return report.AuthErr
	}

	missing := report.Missing()
	if !cmd.Bool("prune") {
		if len(missing) > 0 {
			r.writePlain("\n%s %d missing destination(s), rerun with --prune to remove them\n", formatter.Styles.Warn("!"), len(missing))
		}
		return nil
	}

	removed, err := mappings.Prune(r.configPath, cfg, report)
	if err != nil {
		return err
	}
	if removed > 0 {
		r.logger.Info("pruned mappings", "removed", removed, "backup", shared.BackupPath(r.configPath))
	}
	return r.writePlain("\n%s Pruned %d mapping(s)\n", formatter.Styles.OK("✓"), removed)
}

// MappingsRestore puts back the config saved before the last change.
func (r *Runner) MappingsRestore(ctx context.Context, cmd *cli.Command) error {
	if r.configPath == "" {
		r.configPath = "config.toml"
	}
	if err := shared.RestoreConfig(r.configPath); err != nil {
		return err
	}
	r.config = nil

	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	return r.writePlain("%s Restored %s from %s (%d mappings)\n",
		formatter.Styles.OK("✓"), r.configPath, shared.BackupPath(r.configPath), len(cfg.Mappings))
}
