package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chmouel/lazyconflict/internal/config"
	"github.com/chmouel/lazyconflict/internal/git"
	"github.com/chmouel/lazyconflict/internal/log"
	appiCli "github.com/urfave/cli/v3"
)

var (
	loadConfigFunc    = config.LoadConfig
	newGitServiceFunc = git.NewService
)

// session is what every command needs once flags and configuration are resolved.
type session struct {
	cfg  *config.AppConfig
	git  *git.Service
	ring *log.Ring
	out  io.Writer
	err  io.Writer
}

func openDebugLog(path string) error {
	if path == "" {
		return log.SetFile("")
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		expanded = path
	}
	if err := log.SetFile(expanded); err != nil {
		return fmt.Errorf("error opening debug log file %q: %w", expanded, err)
	}
	return nil
}

// newSession layers configuration as defaults, config file, git config,
// repository file and finally command line flags.
func newSession(ctx context.Context, cmd *appiCli.Command) (*session, error) {
	root := cmd.Root()
	stderr := root.ErrWriter
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := loadConfigFunc(cmd.String("config-file"))
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	dir := cmd.String("repo")
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	s := &session{out: root.Writer, err: stderr}
	svc := newGitServiceFunc(dir, s.notify, s.notifyOnce)
	if err := svc.Available(ctx); err != nil {
		return nil, err
	}
	if repoRoot, err := svc.RepoRoot(ctx); err == nil {
		repoCfg, _, err := config.LoadRepoConfig(repoRoot)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading repository config: %v\n", err)
		}
		cfg.ApplyRepoConfig(repoCfg)
	}

	if err := applyThemeConfig(cfg, cmd.String("theme")); err != nil {
		return nil, err
	}
	if overrides := cmd.StringSlice("config"); len(overrides) > 0 {
		if err := cfg.ApplyCLIOverrides(overrides); err != nil {
			return nil, fmt.Errorf("error applying config overrides: %w", err)
		}
	}

	debugLog := cmd.String("debug-log")
	if debugLog == "" {
		debugLog = cfg.DebugLog
	}
	if err := openDebugLog(debugLog); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
	}
	cfg.DebugLog = debugLog

	s.cfg = cfg
	s.git = svc
	s.ring = log.NewRing(cfg.DiagnosticsCapacity, log.WithForward(log.Printf))
	return s, nil
}

// notify records a git service notice in the diagnostics ring. Notices raised
// before the ring exists only reach the debug log.
func (s *session) notify(message, severity string) {
	if s.ring == nil {
		log.Printf("%s: %s", severity, message)
		return
	}
	s.ring.Printf("%s: %s", severity, message)
}

func (s *session) notifyOnce(key, message, severity string) {
	if s.ring == nil {
		log.Printf("%s: %s", severity, message)
		return
	}
	s.ring.PrintOnce(key, "%s: %s", severity, message)
}

// applyThemeConfig applies the --theme flag.
func applyThemeConfig(cfg *config.AppConfig, themeName string) error {
	if themeName == "" {
		return nil
	}
	normalized := config.NormalizeThemeName(themeName)
	if normalized == "" {
		return fmt.Errorf("unknown theme %q", themeName)
	}
	cfg.Theme = normalized
	return nil
}
