package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chmouel/lazyconflict/internal/log"
	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	diffs     map[string][]string
	diffErrs  map[string]error
	target    []string
	targetErr error
	calls     atomic.Int32
}

func (f *fakeProvider) DiffTrees(_ context.Context, _, commit string) ([]string, error) {
	f.calls.Add(1)
	if err, ok := f.diffErrs[commit]; ok {
		return nil, err
	}
	return f.diffs[commit], nil
}

func (f *fakeProvider) WorkingTreeModifiedPaths(context.Context) ([]string, error) {
	return f.target, f.targetErr
}

func commit(hash string, parents ...string) models.Commit {
	return models.Commit{Hash: hash, Parents: parents, Subject: "commit " + hash}
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		overlap  int
		expected models.Risk
	}{
		{0, models.RiskLow},
		{1, models.RiskMedium},
		{5, models.RiskMedium},
		{6, models.RiskHigh},
		{100, models.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.overlap), func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyRisk(tt.overlap))
		})
	}
}

func TestGenerateMergePreviewOverlap(t *testing.T) {
	provider := &fakeProvider{
		diffs: map[string][]string{
			"c1": {"a.ts"},
			"c2": {"b.ts", "a.ts"},
		},
		target: []string{"b.ts", "c.ts"},
	}
	commits := []models.Commit{commit("c1", "p1"), commit("c2", "c1")}

	got := New(provider).GenerateMergePreview(context.Background(), "feature", "main", commits)

	assert.Equal(t, "feature", got.SourceBranch)
	assert.Equal(t, "main", got.TargetBranch)
	assert.Equal(t, commits, got.Commits)
	assert.Equal(t, []string{"b.ts"}, got.OverlappingFiles)
	assert.Equal(t, 2, got.TotalFiles)
	assert.Equal(t, models.RiskMedium, got.ConflictRisk)
}

func TestGenerateMergePreviewRiskBoundaries(t *testing.T) {
	build := func(n int) *fakeProvider {
		var files []string
		for i := 0; i < n; i++ {
			files = append(files, fmt.Sprintf("f%d.go", i))
		}
		return &fakeProvider{
			diffs:  map[string][]string{"c": append(files, "only-source.go")},
			target: append([]string{"only-target.go"}, files...),
		}
	}

	for n, want := range map[int]models.Risk{0: models.RiskLow, 5: models.RiskMedium, 6: models.RiskHigh} {
		got := New(build(n)).GenerateMergePreview(context.Background(), "s", "t", []models.Commit{commit("c", "p")})
		assert.Len(t, got.OverlappingFiles, n)
		assert.Equal(t, want, got.ConflictRisk, "overlap %d", n)
		assert.Equal(t, n+1, got.TotalFiles)
	}
}

func TestGenerateMergePreviewCapsCommits(t *testing.T) {
	provider := &fakeProvider{diffs: map[string][]string{}}
	var commits []models.Commit
	for i := 0; i < 60; i++ {
		h := fmt.Sprintf("c%02d", i)
		provider.diffs[h] = []string{h + ".go"}
		commits = append(commits, commit(h, "parent"))
	}

	got := New(provider).GenerateMergePreview(context.Background(), "s", "t", commits)
	assert.Len(t, got.Commits, DefaultCommitLimit)
	assert.Equal(t, DefaultCommitLimit, got.TotalFiles)
	assert.EqualValues(t, DefaultCommitLimit, provider.calls.Load())

	provider.calls.Store(0)
	got = New(provider, WithCommitLimit(3)).GenerateMergePreview(context.Background(), "s", "t", commits)
	assert.Len(t, got.Commits, 3)
	assert.EqualValues(t, 3, provider.calls.Load())
}

func TestGenerateMergePreviewSkipsRootAndUnreadable(t *testing.T) {
	ring := log.NewRing(20)
	provider := &fakeProvider{
		diffs: map[string][]string{
			"root": {"root.go"},
			"ok":   {"ok.go"},
		},
		diffErrs: map[string]error{"bad": errors.New("unreadable commit")},
		target:   []string{"root.go", "ok.go"},
	}
	commits := []models.Commit{commit("root"), commit("bad", "x"), commit("ok", "y")}

	got := New(provider, WithLogger(ring)).GenerateMergePreview(context.Background(), "s", "t", commits)
	assert.Equal(t, []string{"ok.go"}, got.OverlappingFiles)
	assert.Equal(t, 1, got.TotalFiles)
	assert.Equal(t, models.RiskMedium, got.ConflictRisk)
	assert.EqualValues(t, 2, provider.calls.Load(), "root commits are not diffed")

	var joined strings.Builder
	for _, e := range ring.Entries() {
		joined.WriteString(e.Message + "\n")
	}
	assert.Contains(t, joined.String(), "skipping root commit root")
	assert.Contains(t, joined.String(), "skipping commit bad: unreadable commit")
}

func TestGenerateMergePreviewDegradesOnTargetFailure(t *testing.T) {
	provider := &fakeProvider{
		diffs:     map[string][]string{"c": {"a.go"}},
		targetErr: errors.New("status failed"),
	}
	got := New(provider).GenerateMergePreview(context.Background(), "s", "t", []models.Commit{commit("c", "p")})
	assert.Empty(t, got.OverlappingFiles)
	assert.Equal(t, models.RiskLow, got.ConflictRisk)
}

func TestGenerateMergePreviewNilProvider(t *testing.T) {
	got := New(nil).GenerateMergePreview(context.Background(), "s", "t", []models.Commit{commit("c", "p")})
	require.NotNil(t, got.OverlappingFiles)
	assert.Empty(t, got.OverlappingFiles)
	assert.Zero(t, got.TotalFiles)
	assert.Equal(t, models.RiskLow, got.ConflictRisk)
}

func TestGenerateMergePreviewDeduplicatesTarget(t *testing.T) {
	provider := &fakeProvider{
		diffs:  map[string][]string{"c": {"b.go", "a.go"}},
		target: []string{"b.go", "a.go", "b.go"},
	}
	got := New(provider).GenerateMergePreview(context.Background(), "s", "t", []models.Commit{commit("c", "p")})
	assert.Equal(t, []string{"a.go", "b.go"}, got.OverlappingFiles)
}

func TestGenerateMergePreviewDoesNotAliasCommits(t *testing.T) {
	commits := []models.Commit{commit("c", "p")}
	got := New(&fakeProvider{}).GenerateMergePreview(context.Background(), "s", "t", commits)
	commits[0].Hash = "changed"
	assert.Equal(t, "c", got.Commits[0].Hash)
}
