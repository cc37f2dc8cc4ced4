// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:     "archiver",
		Usage:    "Archive playlists and albums from a manifest as tagged MP3 files",
		Version:  "0.1.0",
		Commands: []*cli.Command{runCommand(r), planCommand(r), configCommand(r)},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (.json or .toml)",
		Value:   "archiver.toml",
		Sources: cli.EnvVars("ARCHIVER_CONFIG"),
	}
}

// settingsFlags override values from the configuration file.
func settingsFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "manifest",
			Aliases: []string{"m"},
			Usage:   "Manifest JSON listing the collections to archive",
			Sources: cli.EnvVars("ARCHIVER_MANIFEST"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output root directory",
			Sources: cli.EnvVars("ARCHIVER_OUTPUT"),
		},
		&cli.StringFlag{
			Name:    "temp",
			Usage:   "Scratch directory, cleared at the start of every run",
			Sources: cli.EnvVars("ARCHIVER_TEMP"),
		},
	}
}

func runCommand(r *Runner) *cli.Command {
	flags := append(settingsFlags(),
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Number of parallel workers",
			Sources: cli.EnvVars("ARCHIVER_WORKERS"),
		},
		&cli.StringFlag{
			Name:    "provider-url",
			Usage:   "Base URL of the streaming provider",
			Sources: cli.EnvVars("ARCHIVER_PROVIDER_URL"),
		},
		&cli.StringFlag{
			Name:    "provider-token",
			Usage:   "Bearer token for the streaming provider",
			Sources: cli.EnvVars("ARCHIVER_PROVIDER_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "bitrate",
			Usage:   "MP3 bitrate passed to ffmpeg",
			Sources: cli.EnvVars("ARCHIVER_BITRATE"),
		},
		&cli.BoolFlag{
			Name:  "playlist",
			Usage: "Write a playlist file per collection",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Log skipped items and other debug output",
		},
	)

	return &cli.Command{
		Name:   "run",
		Usage:  "Download, convert and tag every item of the manifest",
		Flags:  flags,
		Action: r.Run,
	}
}

func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "plan",
		Usage:  "Show what a run would do without contacting the provider",
		Flags:  settingsFlags(),
		Action: r.Plan,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a configuration file with default values",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}
