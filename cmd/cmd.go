// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/pictune/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand writes the config file and prepares the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the template and run database migrations",
		Action: r.Setup,
	}
}

// analyzeCommand turns a photo into a stored run.
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Describe a photo, derive music parameters and build a track list",
		ArgsUsage: "<image>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "image"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Override the number of tracks suggested by the model",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the run as JSON",
			},
		},
		Action: r.Analyze,
	}
}

// runsCommand browses stored runs.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Browse generated runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.RunsList,
			},
			{
				Name:      "show",
				Usage:     "Show a run's track list",
				ArgsUsage: "<run-id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatText,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.RunsShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a run and its export history",
				ArgsUsage: "<run-id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.RunsDelete,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "connect",
				Usage:  "Authorize with Spotify and show the connected profile",
				Action: r.SpotifyConnect,
			},
			{
				Name:      "export",
				Usage:     "Create a Spotify playlist from a run",
				ArgsUsage: "<run-id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Playlist name (defaults to the photo name)",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Playlist description (defaults to the scene description)",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlist public",
					},
				},
				Action: r.SpotifyExport,
			},
			{
				Name:  "liked",
				Usage: "List your liked songs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of songs to list (0 for all)",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifyLiked,
			},
		},
	}
}

// cardCommand renders a share card for a run.
func cardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "card",
		Usage:     "Render a PNG share card with the photo, top tracks and a QR code",
		ArgsUsage: "<run-id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path (defaults to <cards_dir>/<run-id>.png)",
			},
		},
		Action: r.Card,
	}
}

// tuiCommand returns the top-level TUI command for interactive export.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI to browse runs and export them",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Make exported playlists public",
			},
		},
		Action: r.TUI,
	}
}
