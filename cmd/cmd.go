// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes the database and config file
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the HTTP API server with the background engines
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the library API server, processing queue and file watcher",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "no-watcher",
				Usage: "Disable the filesystem watcher",
			},
		},
		Action: r.Serve,
	}
}

// scanCommand runs a one-shot library scan against the local database
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan media folders for files and stream metadata",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Scan a single folder by ID",
			},
		},
		Action: r.Scan,
	}
}

// mediaCommand handles media file operations through the API
func mediaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "media",
		Aliases: []string{"m"},
		Usage:   "Browse and edit media files",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List scanned media files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Filter by media type (movie or tv)",
					},
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Filter by filename or title",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MediaList,
			},
			{
				Name:  "show",
				Usage: "Show one file with its audio and subtitle tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MediaShow,
			},
			{
				Name:  "set-track",
				Usage: "Store a pending title/language edit on a track",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Usage:    "Track type (audio or subtitle)",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "track",
						Usage:    "Track ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "New track title",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "New track language (ISO 639 code or name)",
					},
				},
				Action: r.MediaSetTrack,
			},
			{
				Name:  "queue",
				Usage: "Queue a file so pending edits are remuxed in",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.MediaQueue,
			},
		},
	}
}

// foldersCommand manages the watched media folders
func foldersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "folders",
		Usage: "Manage media folders",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List registered folders",
				Action: r.FoldersList,
			},
			{
				Name:  "add",
				Usage: "Register a directory as a media folder",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Display name (defaults to the directory name)",
					},
				},
				Action: r.FoldersAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a folder and its files from the library",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.FoldersRemove,
			},
		},
	}
}

// settingsCommand reads and writes app settings
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read and write app settings",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SettingsList,
			},
			{
				Name:  "get",
				Usage: "Print one setting value",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "key",
					},
				},
				Action: r.SettingsGet,
			},
			{
				Name:  "set",
				Usage: "Set a setting value",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "key",
					},
					&cli.StringArg{
						Name: "value",
					},
				},
				Action: r.SettingsSet,
			},
		},
	}
}

// exportCommand writes the library inventory to a file
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the library inventory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: csv, markdown or text",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
		},
		Action: r.Export,
	}
}

// dashboardCommand launches the interactive TUI
func dashboardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Aliases: []string{"tui"},
		Usage:   "Launch the interactive library dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "API server base URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "media",
				Usage: "Focus a media file on startup (an ID or a /media/<id> path)",
			},
		},
		Action: r.Dashboard,
	}
}
