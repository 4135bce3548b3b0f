// Package scanner finds the files of a repository that are left in a conflicted
// state by a merge, cherry-pick or rebase.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/chmouel/lazyconflict/internal/conflict"
	"github.com/chmouel/lazyconflict/internal/log"
	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of files read at the same time.
const DefaultConcurrency = 4

// ErrProviderUnavailable is returned when the repository cannot be queried at all.
var ErrProviderUnavailable = errors.New("repository provider unavailable")

// Provider exposes the read-only repository queries the scanner needs.
type Provider interface {
	// IsMergeInProgress reports whether a merge, cherry-pick or rebase is stopped.
	IsMergeInProgress(ctx context.Context) (bool, error)
	// HasUnmergedPaths reports whether the working tree status lists unmerged paths.
	HasUnmergedPaths(ctx context.Context) (bool, error)
	// ListUnmergedPaths returns repository relative unmerged paths.
	ListUnmergedPaths(ctx context.Context) ([]string, error)
	// ResolvePath maps a repository relative path to a location on disk, failing
	// for paths that escape the repository root.
	ResolvePath(path string) (string, error)
	// ReadWorkingFile returns the working tree content of a repository relative path.
	ReadWorkingFile(ctx context.Context, path string) ([]byte, error)
}

// Scanner turns unmerged paths into parsed conflict files.
type Scanner struct {
	provider    Provider
	logger      log.Logger
	concurrency int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the diagnostics sink.
func WithLogger(l log.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency sets how many files are read in parallel.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a Scanner over provider.
func New(provider Provider, opts ...Option) *Scanner {
	s := &Scanner{
		provider:    provider,
		logger:      log.Discard,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindConflictedFiles returns every conflicted file that contains conflict
// markers, sorted by path. Only a failure to query the repository state is
// returned as an error; problems with individual files drop those files.
func (s *Scanner) FindConflictedFiles(ctx context.Context) ([]models.ConflictFile, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", ErrProviderUnavailable)
	}
	scanID := uuid.NewString()[:8]
	logf := func(format string, args ...any) {
		s.logger.Printf("scan %s: "+format, append([]any{scanID}, args...)...)
	}

	inProgress, err := s.provider.IsMergeInProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if !inProgress {
		hasUnmerged, err := s.provider.HasUnmergedPaths(ctx)
		if err != nil {
			logf("status query failed: %v", err)
			return []models.ConflictFile{}, nil
		}
		if !hasUnmerged {
			logf("no merge in progress and no unmerged paths")
			return []models.ConflictFile{}, nil
		}
	}

	paths, err := s.provider.ListUnmergedPaths(ctx)
	if err != nil {
		logf("listing unmerged paths failed: %v", err)
		return []models.ConflictFile{}, nil
	}
	paths = dedupe(paths)
	logf("%d unmerged paths", len(paths))

	var (
		mu    sync.Mutex
		files = make([]models.ConflictFile, 0, len(paths))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, path := range paths {
		g.Go(func() error {
			file, ok := s.loadFile(gctx, path, logf)
			if !ok {
				return nil
			}
			mu.Lock()
			files = append(files, file)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; per-file failures are logged and skipped.
	_ = g.Wait()

	slices.SortFunc(files, func(a, b models.ConflictFile) int {
		return strings.Compare(a.Path, b.Path)
	})
	logf("%d conflicted files", len(files))
	return files, nil
}

func (s *Scanner) loadFile(ctx context.Context, path string, logf func(string, ...any)) (models.ConflictFile, bool) {
	if _, err := s.provider.ResolvePath(path); err != nil {
		logf("skipping unsafe path %q: %v", path, err)
		return models.ConflictFile{}, false
	}

	data, err := s.provider.ReadWorkingFile(ctx, path)
	if err != nil {
		logf("skipping %q: %v", path, err)
		return models.ConflictFile{}, false
	}

	content := string(data)
	if !conflict.HasConflictMarkers(content) {
		return models.ConflictFile{}, false
	}

	regions, err := conflict.ParseAllConflictRegions(content)
	if err != nil {
		logf("skipping %q: %v", path, err)
		return models.ConflictFile{}, false
	}

	return models.ConflictFile{
		Path:       path,
		RawContent: content,
		Regions:    regions,
	}, true
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
