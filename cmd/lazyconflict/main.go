// Package main is the entry point for the lazyconflict application.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chmouel/lazyconflict/internal/buildinfo"
	"github.com/chmouel/lazyconflict/internal/log"
	appiCli "github.com/urfave/cli/v3"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	buildinfo.Set(buildinfo.Resolve(version, commit, date, builtBy))

	err := newRootCommand().Run(context.Background(), os.Args)
	if cerr := log.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error closing debug log: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *appiCli.Command {
	appiCli.VersionPrinter = func(cmd *appiCli.Command) {
		_, _ = fmt.Fprint(cmd.Root().Writer, buildinfo.Current().String())
	}
	return &appiCli.Command{
		Name:                  "lazyconflict",
		Usage:                 "Browse and resolve git merge conflicts",
		Version:               buildinfo.Current().Version,
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Commands: []*appiCli.Command{
			listCommand(),
			showCommand(),
			resolveCommand(),
			previewCommand(),
			diagnosticsCommand(),
			themesCommand(),
		},
		Action:        rootAction,
		ShellComplete: rootShellComplete,
	}
}
