// Package cli implements the non-interactive lazyconflict commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chmouel/lazyconflict/internal/config"
	"github.com/chmouel/lazyconflict/internal/conflict"
	"github.com/chmouel/lazyconflict/internal/git"
	"github.com/chmouel/lazyconflict/internal/log"
	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/chmouel/lazyconflict/internal/preview"
	"github.com/chmouel/lazyconflict/internal/scanner"
	"github.com/pmezard/go-difflib/difflib"
)

// AllRegions selects every region of a file in ResolveOptions.
const AllRegions = -1

// ErrNoConflicts is returned when a command needs a conflicted file that has none.
var ErrNoConflicts = errors.New("no conflict markers")

type gitService interface {
	scanner.Provider
	preview.Provider
	WriteResolved(ctx context.Context, path, content string) error
	StageFile(ctx context.Context, path string) error
	ListCommits(ctx context.Context, source, target string) ([]models.Commit, error)
	CurrentBranch(ctx context.Context) (string, error)
}

var _ gitService = (*git.Service)(nil)

type listEntry struct {
	Path    string `json:"path"`
	Regions int    `json:"regions"`
}

// List scans the repository and prints the conflicted files.
func List(ctx context.Context, gitSvc gitService, cfg *config.AppConfig, logger log.Logger, out io.Writer, asJSON bool) error {
	files, err := scan(ctx, gitSvc, cfg, logger)
	if err != nil {
		return err
	}

	entries := make([]listEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, listEntry{Path: f.Path, Regions: len(f.Regions)})
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No conflicted files.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PATH\tREGIONS")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", e.Path, e.Regions)
	}
	return w.Flush()
}

func scan(ctx context.Context, gitSvc gitService, cfg *config.AppConfig, logger log.Logger) ([]models.ConflictFile, error) {
	s := scanner.New(gitSvc,
		scanner.WithLogger(logger),
		scanner.WithConcurrency(cfg.ScanConcurrency),
	)
	return s.FindConflictedFiles(ctx)
}

func readConflicted(ctx context.Context, gitSvc gitService, path string) (string, error) {
	data, err := gitSvc.ReadWorkingFile(ctx, path)
	if err != nil {
		return "", err
	}
	text := string(data)
	if !conflict.HasConflictMarkers(text) {
		return "", fmt.Errorf("%s: %w", path, ErrNoConflicts)
	}
	return text, nil
}

// Show prints every conflict region of path with both sides.
func Show(ctx context.Context, gitSvc gitService, out io.Writer, path string) error {
	text, err := readConflicted(ctx, gitSvc, path)
	if err != nil {
		return err
	}
	regions, parseErr := conflict.ParseAllConflictRegions(text)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d region(s)\n", path, len(regions))
	for i, r := range regions {
		fmt.Fprintf(&b, "\n[%d] lines %d-%d\n", i, r.StartLine+1, r.EndLine+1)
		fmt.Fprintf(&b, "--- current (%s)\n", labelOr(r.CurrentLabel, "HEAD"))
		writeIndented(&b, r.CurrentContent)
		fmt.Fprintf(&b, "+++ incoming (%s)\n", labelOr(r.IncomingLabel, "incoming"))
		writeIndented(&b, r.IncomingContent)
	}
	if parseErr != nil {
		fmt.Fprintf(&b, "\nwarning: %v\n", parseErr)
	}
	_, err = io.WriteString(out, b.String())
	return err
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

func writeIndented(b *strings.Builder, content string) {
	if content == "" {
		b.WriteString("    (empty)\n")
		return
	}
	for _, line := range strings.Split(content, "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// ResolveOptions controls Resolve.
type ResolveOptions struct {
	Path   string
	Side   models.Side
	Region int // AllRegions or a 0-based ordinal
	DryRun bool
	Stage  bool
}

// ResolveText applies the resolution described by opts to text.
func ResolveText(text string, opts ResolveOptions) (string, error) {
	switch {
	case opts.Region != AllRegions:
		return conflict.ResolveConflictRegion(text, opts.Region, opts.Side)
	case opts.Side == models.SideBoth:
		return conflict.ResolveConflictAcceptBoth(text)
	default:
		return conflict.ResolveConflictAccept(text, opts.Side)
	}
}

// Resolve rewrites the conflicted file opts.Path. With DryRun set the unified
// diff of the change is printed instead. The file is staged once no markers
// remain and Stage is set.
func Resolve(ctx context.Context, gitSvc gitService, out io.Writer, opts ResolveOptions) error {
	text, err := readConflicted(ctx, gitSvc, opts.Path)
	if err != nil {
		return err
	}
	resolved, err := ResolveText(text, opts)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", opts.Path, err)
	}

	if opts.DryRun {
		diff, err := UnifiedDiff(opts.Path, text, resolved)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, diff)
		return err
	}

	if err := gitSvc.WriteResolved(ctx, opts.Path, resolved); err != nil {
		return err
	}

	remaining := conflict.CountRegions(resolved)
	if remaining > 0 {
		_, err := fmt.Fprintf(out, "%s: %d region(s) remaining\n", opts.Path, remaining)
		return err
	}
	if opts.Stage {
		if err := gitSvc.StageFile(ctx, opts.Path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "%s: resolved and staged\n", opts.Path)
		return err
	}
	_, err = fmt.Fprintf(out, "%s: resolved\n", opts.Path)
	return err
}

// UnifiedDiff renders the change from before to after in unified format.
func UnifiedDiff(path, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}

type previewView struct {
	Source           string   `json:"source"`
	Target           string   `json:"target"`
	Commits          []string `json:"commits"`
	OverlappingFiles []string `json:"overlapping_files"`
	TotalFiles       int      `json:"total_files"`
	ConflictRisk     string   `json:"conflict_risk"`
}

// Preview estimates the conflict risk of bringing source into target. An
// empty target means the current branch, or cfg.DefaultTarget when set.
func Preview(ctx context.Context, gitSvc gitService, cfg *config.AppConfig, logger log.Logger, out io.Writer, source, target string, asJSON bool) error {
	if source == "" {
		return fmt.Errorf("source branch is required")
	}
	if target == "" {
		target = cfg.DefaultTarget
	}
	if target == "" {
		branch, err := gitSvc.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("cannot determine target branch: %w", err)
		}
		target = branch
	}

	commits, err := gitSvc.ListCommits(ctx, source, target)
	if err != nil {
		return err
	}

	analyzer := preview.New(gitSvc,
		preview.WithLogger(logger),
		preview.WithCommitLimit(cfg.PreviewCommitLimit),
		preview.WithConcurrency(cfg.ScanConcurrency),
	)
	p := analyzer.GenerateMergePreview(ctx, source, target, commits)

	view := previewView{
		Source:           p.SourceBranch,
		Target:           p.TargetBranch,
		Commits:          make([]string, 0, len(p.Commits)),
		OverlappingFiles: p.OverlappingFiles,
		TotalFiles:       p.TotalFiles,
		ConflictRisk:     p.ConflictRisk.String(),
	}
	for _, c := range p.Commits {
		view.Commits = append(view.Commits, c.Hash)
	}
	if view.OverlappingFiles == nil {
		view.OverlappingFiles = []string{}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Merge preview: %s -> %s\n", p.SourceBranch, p.TargetBranch)
	fmt.Fprintf(&b, "Commits analysed: %d\n", len(p.Commits))
	for _, c := range p.Commits {
		fmt.Fprintf(&b, "  %s %s\n", c.ShortHash(), c.Subject)
	}
	fmt.Fprintf(&b, "Files touched by %s: %d\n", p.SourceBranch, p.TotalFiles)
	fmt.Fprintf(&b, "Overlapping with local changes: %d\n", len(p.OverlappingFiles))
	for _, f := range p.OverlappingFiles {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	fmt.Fprintf(&b, "Conflict risk: %s\n", p.ConflictRisk)
	_, err = io.WriteString(out, b.String())
	return err
}

// Diagnostics runs a scan and prints what it recorded in ring.
func Diagnostics(ctx context.Context, gitSvc gitService, cfg *config.AppConfig, ring *log.Ring, out io.Writer) error {
	files, err := scan(ctx, gitSvc, cfg, ring)
	if err != nil {
		ring.Printf("scan failed: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "conflicted files: %d\n", len(files))
	fmt.Fprintf(&b, "diagnostics (%d/%d):\n", ring.Len(), ring.Cap())
	for _, e := range ring.Entries() {
		fmt.Fprintf(&b, "  %s %s\n", e.Time.Format("15:04:05.000"), e.Message)
	}
	_, werr := io.WriteString(out, b.String())
	return werr
}
