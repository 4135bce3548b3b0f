// Package main provides CLI command definitions for lazyconflict.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chmouel/lazyconflict/internal/app"
	"github.com/chmouel/lazyconflict/internal/cli"
	"github.com/chmouel/lazyconflict/internal/completion"
	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/chmouel/lazyconflict/internal/theme"
	appiCli "github.com/urfave/cli/v3"
	"golang.org/x/term"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	runTUIFunc     = runTUI
	selectFileFunc = func(ctx context.Context, s *session) (string, error) {
		return cli.SelectConflictedFile(ctx, s.git, s.cfg, s.ring, os.Stdin, s.err)
	}
)

// handleSubcommandCompletion checks if completion is being requested and outputs flags.
func handleSubcommandCompletion(cmd *appiCli.Command) bool {
	if !slices.Contains(os.Args, "--generate-shell-completion") {
		return false
	}
	outputSubcommandFlags(cmd, "")
	return true
}

// outputSubcommandFlags prints the visible flags of cmd matching prefix in completion format.
func outputSubcommandFlags(cmd *appiCli.Command, prefix string) {
	w := cmd.Root().Writer
	for _, flag := range cmd.Flags {
		if bf, ok := flag.(*appiCli.BoolFlag); ok && bf.Hidden {
			continue
		}
		name := flag.Names()[0]
		usage := ""
		if df, ok := flag.(appiCli.DocGenerationFlag); ok {
			usage = df.GetUsage()
		}
		dash := "--"
		if len(name) == 1 {
			dash = "-"
		}
		full := dash + name
		if !strings.HasPrefix(full, prefix) {
			continue
		}
		if usage != "" {
			_, _ = fmt.Fprintf(w, "%s:%s\n", full, usage)
		} else {
			_, _ = fmt.Fprintf(w, "%s\n", full)
		}
	}
}

// completionLastArg returns the word before the cursor during shell completion.
func completionLastArg() string {
	if len(os.Args) > 1 {
		return os.Args[len(os.Args)-2]
	}
	return ""
}

// completeFlagValues prints the enumerated values of the flag being completed.
// It reports whether lastArg was a flag expecting a value.
func completeFlagValues(w io.Writer, lastArg string) bool {
	values, ok := completion.ValuesFor(lastArg)
	if !ok {
		return false
	}
	for _, v := range values {
		_, _ = fmt.Fprintln(w, v)
	}
	return true
}

func subcommandShellComplete(_ context.Context, cmd *appiCli.Command) {
	lastArg := completionLastArg()
	if completeFlagValues(cmd.Root().Writer, lastArg) {
		return
	}
	if strings.HasPrefix(lastArg, "-") && lastArg != "--" {
		outputSubcommandFlags(cmd, lastArg)
		return
	}
	outputSubcommandFlags(cmd, "")
}

// rootShellComplete completes global flag values, global flags and subcommand names.
func rootShellComplete(_ context.Context, cmd *appiCli.Command) {
	lastArg := completionLastArg()
	if completeFlagValues(cmd.Root().Writer, lastArg) {
		return
	}
	if strings.HasPrefix(lastArg, "-") && lastArg != "--" {
		outputSubcommandFlags(cmd, lastArg)
		return
	}
	for _, sub := range cmd.Commands {
		if sub.Hidden {
			continue
		}
		_, _ = fmt.Fprintln(cmd.Root().Writer, sub.Name)
	}
}

// rootAction launches the TUI on a terminal and falls back to list otherwise.
func rootAction(ctx context.Context, cmd *appiCli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	if !isTerminalFunc() {
		return cli.List(ctx, s.git, s.cfg, s.ring, s.out, false)
	}
	return runTUIFunc(s)
}

func runTUI(s *session) error {
	model := app.NewModel(s.cfg, s.git, s.ring)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	model.Close()
	if err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}

func listCommand() *appiCli.Command {
	return &appiCli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List conflicted files with their region counts",
		Action: func(ctx context.Context, cmd *appiCli.Command) error {
			if handleSubcommandCompletion(cmd) {
				return nil
			}
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			return cli.List(ctx, s.git, s.cfg, s.ring, s.out, cmd.Bool("json"))
		},
		ShellComplete: subcommandShellComplete,
		Flags: []appiCli.Flag{
			&appiCli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
	}
}

// pathArgument returns the positional path, or asks the user to pick one.
func pathArgument(ctx context.Context, cmd *appiCli.Command, s *session) (string, error) {
	if path := cmd.Args().First(); path != "" {
		return path, nil
	}
	return selectFileFunc(ctx, s)
}

func showCommand() *appiCli.Command {
	return &appiCli.Command{
		Name:      "show",
		Usage:     "Print the conflict regions of a file",
		ArgsUsage: "[path]",
		Action: func(ctx context.Context, cmd *appiCli.Command) error {
			if handleSubcommandCompletion(cmd) {
				return nil
			}
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			path, err := pathArgument(ctx, cmd, s)
			if err != nil {
				return err
			}
			return cli.Show(ctx, s.git, s.out, path)
		},
		ShellComplete: subcommandShellComplete,
	}
}

func resolveCommand() *appiCli.Command {
	return &appiCli.Command{
		Name:      "resolve",
		Usage:     "Resolve conflict regions of a file by choosing a side",
		ArgsUsage: "[path]",
		Action: func(ctx context.Context, cmd *appiCli.Command) error {
			if handleSubcommandCompletion(cmd) {
				return nil
			}
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			opts, err := resolveOptions(cmd, s)
			if err != nil {
				return err
			}
			if opts.Path, err = pathArgument(ctx, cmd, s); err != nil {
				return err
			}
			return cli.Resolve(ctx, s.git, s.out, opts)
		},
		ShellComplete: subcommandShellComplete,
		Flags: []appiCli.Flag{
			&appiCli.StringFlag{
				Name:    "side",
				Aliases: []string{"s"},
				Usage:   "Side to keep: current, incoming, base or both (defaults to lc.default_side)",
			},
			&appiCli.IntFlag{
				Name:    "region",
				Aliases: []string{"r"},
				Value:   cli.AllRegions,
				Usage:   "0-based region ordinal; all regions when omitted",
			},
			&appiCli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the resulting diff without writing the file",
			},
			&appiCli.BoolFlag{
				Name:  "no-stage",
				Usage: "Do not stage the file once every region is resolved",
			},
		},
	}
}

func resolveOptions(cmd *appiCli.Command, s *session) (cli.ResolveOptions, error) {
	side := s.cfg.DefaultSide
	if name := cmd.String("side"); name != "" {
		parsed, err := models.ParseSide(name)
		if err != nil {
			return cli.ResolveOptions{}, err
		}
		side = parsed
	}
	region := int(cmd.Int("region"))
	if region < cli.AllRegions {
		return cli.ResolveOptions{}, fmt.Errorf("invalid --region %d", region)
	}
	return cli.ResolveOptions{
		Side:   side,
		Region: region,
		DryRun: cmd.Bool("dry-run"),
		Stage:  s.cfg.StageOnWrite && !cmd.Bool("no-stage"),
	}, nil
}

func previewCommand() *appiCli.Command {
	return &appiCli.Command{
		Name:  "preview",
		Usage: "Estimate which files a merge of source into target would conflict on",
		Action: func(ctx context.Context, cmd *appiCli.Command) error {
			if handleSubcommandCompletion(cmd) {
				return nil
			}
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			return cli.Preview(ctx, s.git, s.cfg, s.ring, s.out, cmd.String("source"), cmd.String("target"), cmd.Bool("json"))
		},
		ShellComplete: subcommandShellComplete,
		Flags: []appiCli.Flag{
			&appiCli.StringFlag{Name: "source", Usage: "Branch to merge", Required: true},
			&appiCli.StringFlag{Name: "target", Usage: "Branch merged into (defaults to the current branch)"},
			&appiCli.BoolFlag{Name: "json", Usage: "Output as JSON"},
		},
	}
}

func diagnosticsCommand() *appiCli.Command {
	return &appiCli.Command{
		Name:  "diagnostics",
		Usage: "Print environment and scan diagnostics",
		Action: func(ctx context.Context, cmd *appiCli.Command) error {
			if handleSubcommandCompletion(cmd) {
				return nil
			}
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			return cli.Diagnostics(ctx, s.git, s.cfg, s.ring, s.out)
		},
		ShellComplete: subcommandShellComplete,
	}
}

func themesCommand() *appiCli.Command {
	return &appiCli.Command{
		Name:  "themes",
		Usage: "List available UI themes",
		Action: func(_ context.Context, cmd *appiCli.Command) error {
			printThemes(cmd.Root().Writer)
			return nil
		},
	}
}

func printThemes(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Available themes:")
	for _, name := range theme.AvailableThemes() {
		kind := "dark"
		if theme.IsLight(name) {
			kind = "light"
		}
		_, _ = fmt.Fprintf(w, "  %-18s %s\n", name, kind)
	}
}
