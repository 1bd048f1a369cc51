// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/ytsync/internal/formatter"
	"github.com/urfave/cli/v3"
)

func formatNames() string {
	names := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// setupCommand handles database initialization and migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// syncCommand runs and previews reconciliation.
func syncCommand(r *Runner) *cli.Command {
	mappingFlag := func() cli.Flag {
		return &cli.StringSliceFlag{
			Name:    "mapping",
			Aliases: []string{"m"},
			Usage:   "Limit to these source playlist ids (repeatable)",
		}
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile Spotify playlists into their YouTube Music mappings",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Validate mappings and add missing tracks to each destination",
				Flags: []cli.Flag{
					mappingFlag(),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Plan and report without adding tracks or updating the cache",
					},
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Remove mappings whose destination playlist no longer exists",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output per-mapping results as JSON",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "plan",
				Usage: "Preview what a run would add",
				Flags: []cli.Flag{
					mappingFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: " + formatNames(),
						Value:   string(formatter.Text),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the plan to a file instead of stdout",
					},
				},
				Action: r.SyncPlan,
			},
		},
	}
}

// mappingsCommand manages the persisted playlist mappings.
func mappingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "mappings",
		Aliases: []string{"mapping", "map"},
		Usage:   "Manage source/destination playlist mappings",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List configured mappings",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.MappingsList,
			},
			{
				Name:  "add",
				Usage: "Add a mapping",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Spotify playlist id",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "destination",
						Aliases: []string{"d"},
						Usage:   "YouTube Music playlist id (empty leaves the playlist unmapped)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
					&cli.BoolFlag{
						Name:  "fetch-name",
						Usage: "Use the Spotify playlist name when --name is empty",
					},
				},
				Action: r.MappingsAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove mappings by source playlist id",
				ArgsUsage: "<source-id>...",
				Action:    r.MappingsRemove,
			},
			{
				Name:  "validate",
				Usage: "Check every destination playlist and classify each mapping",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Remove mappings whose destination is missing (a backup is kept)",
					},
				},
				Action: r.MappingsValidate,
			},
			{
				Name:   "restore",
				Usage:  "Restore the config saved before the last change",
				Action: r.MappingsRestore,
			},
		},
	}
}

// cacheCommand inspects and edits the match cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the match cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List confirmed matches",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Source playlist id",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.CacheList,
			},
			{
				Name:      "invalidate",
				Usage:     "Forget a confirmed match, or all matches of a playlist",
				ArgsUsage: "<source-playlist-id> [source-track-id]",
				Action:    r.CacheInvalidate,
			},
			{
				Name:  "stats",
				Usage: "Show entry counts per source playlist",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.CacheStats,
			},
		},
	}
}

// runsCommand shows run history.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show sync run history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mapping", Aliases: []string{"m"}, Usage: "Source playlist id"},
					&cli.StringFlag{Name: "status", Usage: "Filter by status (completed, failed, aborted)"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of runs", Value: 20},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.RunsList,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check that Spotify and the YouTube Music proxy accept the configured credentials",
				Action: r.AuthStatus,
			},
		},
	}
}
