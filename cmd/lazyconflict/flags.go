package main

import appiCli "github.com/urfave/cli/v3"

// globalFlags returns the flags shared by the TUI and every subcommand.
func globalFlags() []appiCli.Flag {
	return []appiCli.Flag{
		&appiCli.StringFlag{
			Name:  "repo",
			Usage: "Repository to work on (defaults to the current directory)",
		},
		&appiCli.StringFlag{
			Name:  "debug-log",
			Usage: "Path to debug log file",
		},
		&appiCli.StringFlag{
			Name:    "theme",
			Aliases: []string{"t"},
			Usage:   "Override the UI theme",
		},
		&appiCli.StringFlag{
			Name:  "config-file",
			Usage: "Path to configuration file",
		},
		&appiCli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"C"},
			Usage:   "Override config values (repeatable): --config=lc.key=value",
		},
	}
}
