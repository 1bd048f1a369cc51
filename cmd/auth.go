package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthStatus reports whether both catalogs accept the configured credentials.
//
// The source is checked by fetching the first mapped playlist; the destination through the proxy's /health.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	r.logger.Info("checking auth status")
	r.writePlainHeader("Authentication")

	var failed []string

	source, err := r.sourceCatalog(ctx)
	if err == nil && len(cfg.Mappings) > 0 {
		_, err = source.FetchPlaylistTracks(ctx, cfg.Mappings[0].Source)
	}
	if ok := r.authLine("Spotify", err); !ok {
		failed = append(failed, "Spotify")
	}

	dest, err := r.destCatalog(ctx)
	if err == nil {
		err = dest.CheckAuth(ctx)
	}
	if ok := r.authLine("YouTube Music", err); !ok {
		failed = append(failed, "YouTube Music")
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, failed)
	}
	return nil
}

// authLine prints one service's status. A NOT_FOUND check still proves the credentials work.
func (r *Runner) authLine(service string, err error) bool {
	if errors.Is(err, shared.ErrMissingCredentials) {
		r.writePlain("%-14s %s %v\n", service, formatter.Styles.Err("✗ not configured"), err)
		return false
	}

	switch kind := shared.KindOf(err); kind {
	case shared.KindNone, shared.KindNotFound:
		r.writePlain("%-14s %s\n", service, formatter.Styles.OK("✓ authenticated"))
		return true
	case shared.KindAuthFailure:
		r.writePlain("%-14s %s %v\n", service, formatter.Styles.Err("✗ rejected"), err)
	default:
		r.writePlain("%-14s %s %v\n", service, formatter.Styles.Warn("? "+kind.String()), err)
	}
	return false
}
