// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads the TOML configuration
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles first-run initialization
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration, database and NetEase session",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a config.toml from the embedded template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "netease",
				Usage: "Save a NetEase session from a browser cURL command",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from browser DevTools",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
				},
				Action: r.SetupNetease,
			},
		},
	}
}

// authCommand handles the Spotify OAuth lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify via the browser",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored token state",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// neteaseCommand handles NetEase Cloud Music operations
func neteaseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "netease",
		Aliases: []string{"ne"},
		Usage:   "NetEase Cloud Music playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "tracks",
				Usage: "List the tracks of a NetEase playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to fetch",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.NeteaseTracks,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search the Spotify catalog for tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results to return",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifySearch,
			},
		},
	}
}

// migrateCommand handles playlist migrations
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"mig"},
		Usage:   "Migrate NetEase playlists to Spotify",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the migration for configured playlists or a single --id",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Migrate a single NetEase playlist ID instead of the configured set",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Migrate only the first N tracks (with --id)",
					},
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"o"},
						Usage:   "Base path for report exports (writes {base}_report.md and {base}_outcomes.csv)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output reports as JSON",
					},
					&cli.BoolFlag{
						Name:  "no-history",
						Usage: "Skip recording the run in the history database",
					},
				},
				Action: r.MigrateRun,
			},
			{
				Name:  "ui",
				Usage: "Run the migration in an interactive terminal UI",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Migrate a single NetEase playlist ID instead of the configured set",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Migrate only the first N tracks (with --id)",
					},
				},
				Action: r.MigrateUI,
			},
		},
	}
}

// historyCommand handles the persisted run history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect past migration runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded migration runs, newest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "state",
						Usage: "Filter by run state (completed, failed, ...)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show the per-track outcomes of a recorded run",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.HistoryShow,
			},
			{
				Name:  "clear",
				Usage: "Delete recorded runs and the match cache",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "cache",
						Usage: "Also clear the match cache",
					},
				},
				Action: r.HistoryClear,
			},
		},
	}
}
