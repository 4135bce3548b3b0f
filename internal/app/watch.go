package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// gitWatchDebounce is the minimum delay between two watcher triggered rescans.
const gitWatchDebounce = 600 * time.Millisecond

// gitStateFiles are the entries of the git directory whose changes can add or
// remove conflicts.
var gitStateFiles = map[string]struct{}{
	"HEAD":             {},
	"ORIG_HEAD":        {},
	"MERGE_HEAD":       {},
	"CHERRY_PICK_HEAD": {},
	"REVERT_HEAD":      {},
	"REBASE_HEAD":      {},
	"index":            {},
	"rebase-merge":     {},
	"rebase-apply":     {},
}

type gitDirResolver interface {
	GitDir(ctx context.Context) (string, error)
}

// gitWatcher signals when the repository's merge state may have changed.
type gitWatcher struct {
	started     bool
	waiting     bool
	gitDir      string
	roots       []string
	events      chan struct{}
	done        chan struct{}
	paths       map[string]struct{}
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	lastRefresh time.Time
	git         gitDirResolver
	logf        func(string, ...any)
}

func newGitWatcher(git gitDirResolver, logf func(string, ...any)) *gitWatcher {
	return &gitWatcher{git: git, logf: logf}
}

// start watches the git directory and the rebase state directories.
func (w *gitWatcher) start(ctx context.Context) (bool, error) {
	if w.started || w.git == nil {
		return false, nil
	}
	gitDir, err := w.git.GitDir(ctx)
	if err != nil || gitDir == "" {
		w.debugf("auto refresh: unable to resolve git dir: %v", err)
		return false, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return false, err
	}

	w.started = true
	w.watcher = watcher
	w.gitDir = gitDir
	w.events = make(chan struct{}, 1)
	w.done = make(chan struct{})
	w.paths = make(map[string]struct{})
	w.roots = []string{
		filepath.Join(gitDir, "rebase-merge"),
		filepath.Join(gitDir, "rebase-apply"),
	}
	w.addWatchDir(gitDir)
	for _, root := range w.roots {
		w.addWatchDir(root)
	}

	go w.run()
	return true, nil
}

func (w *gitWatcher) stop() {
	if !w.started {
		return
	}
	close(w.done)
	w.started = false
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

// nextEvent returns the event channel unless a receive is already pending.
func (w *gitWatcher) nextEvent() <-chan struct{} {
	if w.events == nil || w.waiting {
		return nil
	}
	w.waiting = true
	return w.events
}

func (w *gitWatcher) resetWaiting() {
	w.waiting = false
}

func (w *gitWatcher) shouldRefresh(now time.Time) bool {
	if !w.lastRefresh.IsZero() && now.Sub(w.lastRefresh) < gitWatchDebounce {
		return false
	}
	w.lastRefresh = now
	return true
}

// relevant reports whether a change to path can affect the conflict state.
func (w *gitWatcher) relevant(path string) bool {
	if w.isUnderRoot(path) {
		return true
	}
	if filepath.Dir(path) != w.gitDir {
		return false
	}
	_, ok := gitStateFiles[filepath.Base(path)]
	return ok
}

func (w *gitWatcher) isUnderRoot(path string) bool {
	if path == "" {
		return false
	}
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *gitWatcher) signal() {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.events <- struct{}{}:
	default:
	}
}

func (w *gitWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 && w.isUnderRoot(event.Name) {
				w.addWatchDir(event.Name)
			}
			w.signal()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.debugf("git watcher error: %v", err)
		}
	}
}

func (w *gitWatcher) addWatchDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.debugf("git watcher add failed for %s: %v", path, err)
		return
	}
	w.paths[path] = struct{}{}
}

func (w *gitWatcher) debugf(format string, args ...any) {
	if w.logf != nil {
		w.logf(format, args...)
	}
}
