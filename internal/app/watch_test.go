package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitWatcherRelevant(t *testing.T) {
	w := &gitWatcher{
		gitDir: "/repo/.git",
		roots:  []string{"/repo/.git/rebase-merge", "/repo/.git/rebase-apply"},
	}
	assert.True(t, w.relevant("/repo/.git/MERGE_HEAD"))
	assert.True(t, w.relevant("/repo/.git/index"))
	assert.True(t, w.relevant("/repo/.git/rebase-merge/done"))
	assert.False(t, w.relevant("/repo/.git/index.lock"))
	assert.False(t, w.relevant("/repo/.git/objects/ab"))
	assert.False(t, w.relevant("/elsewhere/MERGE_HEAD"))
}

func TestGitWatcherDebounce(t *testing.T) {
	w := &gitWatcher{}
	now := time.Now()
	assert.True(t, w.shouldRefresh(now))
	assert.False(t, w.shouldRefresh(now.Add(gitWatchDebounce/2)))
	assert.True(t, w.shouldRefresh(now.Add(2*gitWatchDebounce)))
}

func TestGitWatcherWithoutGitDir(t *testing.T) {
	w := newGitWatcher(newFakeGit(nil), nil)
	started, err := w.start(context.Background())
	require.NoError(t, err)
	assert.False(t, started)
	assert.Nil(t, w.nextEvent())
	w.stop()
}

func TestGitWatcherSignalsMergeState(t *testing.T) {
	gitDir := t.TempDir()
	git := newFakeGit(nil)
	git.gitDir = gitDir

	w := newGitWatcher(git, nil)
	started, err := w.start(context.Background())
	require.NoError(t, err)
	require.True(t, started)
	defer w.stop()

	events := w.nextEvent()
	require.NotNil(t, events)
	assert.Nil(t, w.nextEvent(), "only one pending receive")

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "MERGE_HEAD"), []byte("abc\n"), 0o600))

	select {
	case <-events:
	case <-time.After(3 * time.Second):
		t.Fatal("no event for MERGE_HEAD")
	}
	w.resetWaiting()
	assert.NotNil(t, w.nextEvent())
}

func TestModelStartsWatcher(t *testing.T) {
	git := newFakeGit(nil)
	git.gitDir = t.TempDir()
	cfg := testConfig()
	cfg.AutoRefresh = true

	m := NewModel(cfg, git, nil)
	defer m.Close()
	cmd := m.startGitWatcher()
	require.NotNil(t, cmd)
	require.NotNil(t, m.watch)
	assert.True(t, m.watch.started)
	assert.Nil(t, m.startGitWatcher(), "second start is a no-op")

	m.Close()
	assert.False(t, m.watch.started)
}
