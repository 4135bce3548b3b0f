// Package preview estimates how risky a merge, rebase or cherry-pick is going to
// be by comparing the paths changed by the incoming commits with the paths
// modified in the target working tree.
package preview

import (
	"context"
	"slices"
	"sync"

	"github.com/chmouel/lazyconflict/internal/log"
	"github.com/chmouel/lazyconflict/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCommitLimit caps how many commits are diffed for one preview.
	DefaultCommitLimit = 50
	// DefaultConcurrency bounds the number of tree diffs run in parallel.
	DefaultConcurrency = 4

	// mediumRiskMax is the largest overlap still classified as medium.
	mediumRiskMax = 5
)

// Provider exposes the repository queries needed for a preview.
type Provider interface {
	// DiffTrees returns the paths that differ between the trees of parent and commit.
	DiffTrees(ctx context.Context, parent, commit string) ([]string, error)
	// WorkingTreeModifiedPaths returns paths modified against the index or HEAD.
	WorkingTreeModifiedPaths(ctx context.Context) ([]string, error)
}

// Analyzer builds merge previews.
type Analyzer struct {
	provider    Provider
	logger      log.Logger
	commitLimit int
	concurrency int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the diagnostics sink.
func WithLogger(l log.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCommitLimit overrides DefaultCommitLimit.
func WithCommitLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.commitLimit = n
		}
	}
}

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an Analyzer over provider.
func New(provider Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider:    provider,
		logger:      log.Discard,
		commitLimit: DefaultCommitLimit,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ClassifyRisk maps the number of overlapping files to a risk level.
func ClassifyRisk(overlapping int) models.Risk {
	switch {
	case overlapping > mediumRiskMax:
		return models.RiskHigh
	case overlapping > 0:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// GenerateMergePreview computes the overlap between the paths changed by commits
// and the paths locally modified in the target. Failures never surface as errors:
// they shrink the preview, down to an empty low risk one.
func (a *Analyzer) GenerateMergePreview(ctx context.Context, sourceBranch, targetBranch string, commits []models.Commit) models.MergePreview {
	if len(commits) > a.commitLimit {
		a.logger.Printf("preview %s -> %s: considering first %d of %d commits", sourceBranch, targetBranch, a.commitLimit, len(commits))
		commits = commits[:a.commitLimit]
	}

	result := models.MergePreview{
		SourceBranch:     sourceBranch,
		TargetBranch:     targetBranch,
		Commits:          slices.Clone(commits),
		OverlappingFiles: []string{},
		ConflictRisk:     models.RiskLow,
	}
	if a.provider == nil {
		a.logger.Printf("preview %s -> %s: no provider configured", sourceBranch, targetBranch)
		return result
	}

	sourceFiles := a.changedPaths(ctx, commits)
	result.TotalFiles = len(sourceFiles)

	targetPaths, err := a.provider.WorkingTreeModifiedPaths(ctx)
	if err != nil {
		a.logger.Printf("preview %s -> %s: target status failed: %v", sourceBranch, targetBranch, err)
		return result
	}

	seen := make(map[string]struct{}, len(targetPaths))
	for _, p := range targetPaths {
		if _, ok := sourceFiles[p]; !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		result.OverlappingFiles = append(result.OverlappingFiles, p)
	}
	slices.Sort(result.OverlappingFiles)
	result.ConflictRisk = ClassifyRisk(len(result.OverlappingFiles))

	a.logger.Printf("preview %s -> %s: %d commits, %d files, %d overlapping, %s risk",
		sourceBranch, targetBranch, len(commits), result.TotalFiles, len(result.OverlappingFiles), result.ConflictRisk)
	return result
}

// changedPaths unions the first-parent tree diffs of commits.
func (a *Analyzer) changedPaths(ctx context.Context, commits []models.Commit) map[string]struct{} {
	var (
		mu    sync.Mutex
		paths = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, c := range commits {
		parent := c.FirstParent()
		if parent == "" {
			a.logger.Printf("preview: skipping root commit %s", c.ShortHash())
			continue
		}
		g.Go(func() error {
			changed, err := a.provider.DiffTrees(gctx, parent, c.Hash)
			if err != nil {
				a.logger.Printf("preview: skipping commit %s: %v", c.ShortHash(), err)
				return nil
			}
			mu.Lock()
			for _, p := range changed {
				if p != "" {
					paths[p] = struct{}{}
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return paths
}
