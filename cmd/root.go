package cmd

import (
	"github.com/urfave/cli/v3"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "meeting-summary",
		Version: version,
		Usage:   "Turn meeting recordings into audio, transcripts and Markdown summaries.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML or YAML config file",
				Sources: cli.EnvVars("MS_CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (pretty, json)",
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			runCmd(),
			extractCmd(),
			transcribeCmd(),
			summarizeCmd(),
			watchCmd(),
		},
	}
}
