// Package git wraps the git commands lazyconflict needs to inspect a conflicted
// repository and to write resolutions back.
package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	log "github.com/chmouel/lazyconflict/internal/log"
	"github.com/chmouel/lazyconflict/internal/models"
)

// LookupPath is used to find executables in PATH. It's exposed as a package variable
// so tests can mock it and avoid depending on system binaries being installed.
var LookupPath = exec.LookPath

var (
	// ErrGitUnavailable is returned when git is missing or the directory is not a repository.
	ErrGitUnavailable = errors.New("git unavailable")
	// ErrNotFound is returned when a working tree file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrPermissionDenied is returned when a working tree file cannot be read or written.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnreadableCommit is returned when a commit tree cannot be diffed.
	ErrUnreadableCommit = errors.New("unreadable commit")
	// ErrPathOutsideRepo is returned for paths resolving outside the repository root.
	ErrPathOutsideRepo = errors.New("path outside repository")
)

// Operation names a stopped history operation.
type Operation string

// Operations detected from the state files git leaves in the git directory.
const (
	OperationNone       Operation = ""
	OperationMerge      Operation = "merge"
	OperationCherryPick Operation = "cherry-pick"
	OperationRevert     Operation = "revert"
	OperationRebase     Operation = "rebase"
)

// operationMarkers maps git directory entries to the operation they signal,
// checked in order.
var operationMarkers = []struct {
	name string
	op   Operation
}{
	{"MERGE_HEAD", OperationMerge},
	{"CHERRY_PICK_HEAD", OperationCherryPick},
	{"REVERT_HEAD", OperationRevert},
	{"REBASE_HEAD", OperationRebase},
	{"rebase-merge", OperationRebase},
	{"rebase-apply", OperationRebase},
}

// NotifyFn receives degradation notices such as a fallback query being used.
type NotifyFn func(message string, severity string)

// NotifyOnceFn receives failed git commands. key identifies the command so the
// receiver can drop repeats across refreshes.
type NotifyOnceFn func(key string, message string, severity string)

// Service runs git against a single repository.
type Service struct {
	dir        string
	notify     NotifyFn
	notifyOnce NotifyOnceFn
	semaphore  chan struct{}

	mu     sync.Mutex
	root   string
	gitDir string
}

// NewService constructs a Service for the repository containing dir and sets up
// concurrency limits. An empty dir means the current working directory.
func NewService(dir string, notify NotifyFn, notifyOnce NotifyOnceFn) *Service {
	limit := runtime.NumCPU() * 2
	if limit < 4 {
		limit = 4
	}
	if limit > 32 {
		limit = 32
	}

	// Counting semaphore: acquireSemaphore takes a token, releaseSemaphore returns it.
	semaphore := make(chan struct{}, limit)
	for i := 0; i < limit; i++ {
		semaphore <- struct{}{}
	}

	if notify == nil {
		notify = func(string, string) {}
	}
	if notifyOnce == nil {
		notifyOnce = func(string, string, string) {}
	}

	return &Service{
		dir:        dir,
		notify:     notify,
		notifyOnce: notifyOnce,
		semaphore:  semaphore,
	}
}

func (s *Service) debugf(format string, args ...any) {
	log.Printf(format, args...)
}

func prepareAllowedCommand(ctx context.Context, args []string) (*exec.Cmd, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no command provided")
	}

	switch args[0] {
	case "git":
		// #nosec G204 -- arguments for git command come from internal logic and are not shell interpolated
		return exec.CommandContext(ctx, "git", args[1:]...), nil
	default:
		return nil, fmt.Errorf("unsupported command %q", args[0])
	}
}

func (s *Service) acquireSemaphore() {
	<-s.semaphore
}

func (s *Service) releaseSemaphore() {
	s.semaphore <- struct{}{}
}

// runGit executes a git command in the service directory and returns stdout.
// Exit codes listed in okReturncodes are not treated as failures.
func (s *Service) runGit(ctx context.Context, args []string, okReturncodes []int) (string, error) {
	return s.runGitIn(ctx, s.dir, args, okReturncodes)
}

// runGitAtRoot runs a git command from the top of the working tree, so that
// pathspecs and reported paths are relative to the repository root whatever
// directory the service was created for.
func (s *Service) runGitAtRoot(ctx context.Context, args []string, okReturncodes []int) (string, error) {
	root, err := s.RepoRoot(ctx)
	if err != nil {
		return "", err
	}
	return s.runGitIn(ctx, root, args, okReturncodes)
}

// runGitIn executes a git command in dir. Failures are reported once per
// command through notifyOnce.
func (s *Service) runGitIn(ctx context.Context, dir string, args []string, okReturncodes []int) (string, error) {
	command := strings.Join(args, " ")
	if command == "" {
		command = "<empty>"
	}
	s.debugf("run: %s (cwd=%s)", command, dir)

	cmd, err := prepareAllowedCommand(ctx, args)
	if err != nil {
		s.debugf("error: %s (unsupported command)", command)
		return "", err
	}
	if dir != "" {
		cmd.Dir = dir
	}

	s.acquireSemaphore()
	output, err := cmd.Output()
	s.releaseSemaphore()

	if err != nil {
		var exitError *exec.ExitError
		if !errors.As(err, &exitError) {
			s.debugf("error: command not found: %s", args[0])
			s.notifyOnce("git_missing", fmt.Sprintf("git cannot be run: %v", err), "error")
			return "", fmt.Errorf("%w: %w", ErrGitUnavailable, err)
		}
		if !slices.Contains(okReturncodes, exitError.ExitCode()) {
			detail := strings.TrimSpace(string(exitError.Stderr))
			if detail == "" {
				detail = fmt.Sprintf("exit %d", exitError.ExitCode())
			}
			s.debugf("error: %s: %s", command, detail)
			s.notifyOnce(fmt.Sprintf("git_fail:%s:%s", dir, command), fmt.Sprintf("Command failed: %s: %s", command, detail), "error")
			return "", fmt.Errorf("%s: %s", command, detail)
		}
	}

	s.debugf("ok: %s", command)
	return string(output), nil
}

// Available checks that git can be run and that the directory is inside a repository.
func (s *Service) Available(ctx context.Context) error {
	if _, err := LookupPath("git"); err != nil {
		return fmt.Errorf("%w: %w", ErrGitUnavailable, err)
	}
	_, err := s.RepoRoot(ctx)
	return err
}

// RepoRoot returns the absolute top-level directory of the working tree.
func (s *Service) RepoRoot(ctx context.Context) (string, error) {
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()
	if root != "" {
		return root, nil
	}

	out, err := s.runGit(ctx, []string{"git", "rev-parse", "--show-toplevel"}, []int{0})
	if err != nil {
		if errors.Is(err, ErrGitUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrGitUnavailable, err)
	}
	root = strings.TrimSpace(out)
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	return root, nil
}

// GitDir returns the absolute git directory of the current worktree.
func (s *Service) GitDir(ctx context.Context) (string, error) {
	s.mu.Lock()
	dir := s.gitDir
	s.mu.Unlock()
	if dir != "" {
		return dir, nil
	}

	out, err := s.runGit(ctx, []string{"git", "rev-parse", "--absolute-git-dir"}, []int{0})
	if err != nil {
		if errors.Is(err, ErrGitUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrGitUnavailable, err)
	}
	dir = strings.TrimSpace(out)

	s.mu.Lock()
	s.gitDir = dir
	s.mu.Unlock()
	return dir, nil
}

// CurrentOperation returns the history operation git is stopped in, if any.
func (s *Service) CurrentOperation(ctx context.Context) (Operation, error) {
	if _, err := LookupPath("git"); err != nil {
		return OperationNone, fmt.Errorf("%w: %w", ErrGitUnavailable, err)
	}
	gitDir, err := s.GitDir(ctx)
	if err != nil {
		return OperationNone, err
	}
	for _, marker := range operationMarkers {
		if _, err := os.Stat(filepath.Join(gitDir, marker.name)); err == nil {
			return marker.op, nil
		}
	}
	return OperationNone, nil
}

// IsMergeInProgress reports whether a merge, cherry-pick, revert or rebase is stopped.
func (s *Service) IsMergeInProgress(ctx context.Context) (bool, error) {
	op, err := s.CurrentOperation(ctx)
	if err != nil {
		return false, err
	}
	return op != OperationNone, nil
}

// CurrentBranch returns the checked out branch name.
// Returns an error when HEAD is detached, which is common in the middle of a rebase.
func (s *Service) CurrentBranch(ctx context.Context) (string, error) {
	out, err := s.runGit(ctx, []string{"git", "rev-parse", "--abbrev-ref", "HEAD"}, []int{0})
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out)
	if branch == "" || branch == "HEAD" {
		return "", fmt.Errorf("not currently on a branch (detached HEAD)")
	}
	return branch, nil
}

// StatusFiles returns the porcelain status of the working tree.
func (s *Service) StatusFiles(ctx context.Context) ([]models.StatusFile, error) {
	out, err := s.runGitAtRoot(ctx, []string{"git", "status", "--porcelain=v1", "-z", "--untracked-files=all"}, []int{0})
	if err != nil {
		return nil, err
	}
	return parseStatusPorcelain(out), nil
}

// parseStatusPorcelain parses `git status --porcelain=v1 -z`. Renames and copies
// carry their original path as an extra NUL separated field, which is dropped.
func parseStatusPorcelain(raw string) []models.StatusFile {
	fields := strings.Split(raw, "\x00")
	files := make([]models.StatusFile, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}
		xy := entry[:2]
		name := entry[3:]
		if xy[0] == 'R' || xy[0] == 'C' {
			i++
		}
		files = append(files, models.StatusFile{
			Filename:    name,
			Status:      strings.ReplaceAll(xy, " ", "."),
			IsUntracked: xy == "??",
			IsUnmerged:  models.IsUnmergedStatus(xy),
		})
	}
	return files
}

// HasUnmergedPaths reports whether the working tree status lists any unmerged path.
func (s *Service) HasUnmergedPaths(ctx context.Context) (bool, error) {
	files, err := s.StatusFiles(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(files, func(f models.StatusFile) bool { return f.IsUnmerged }), nil
}

// ListUnmergedPaths returns the repository relative unmerged paths of the index.
// It asks `git diff --diff-filter=U` first and falls back to the raw stage
// entries of `git ls-files -u`.
func (s *Service) ListUnmergedPaths(ctx context.Context) ([]string, error) {
	out, err := s.runGitAtRoot(ctx, []string{"git", "diff", "--name-only", "--diff-filter=U", "-z"}, []int{0})
	if err == nil {
		return splitNUL(out), nil
	}
	s.notify(fmt.Sprintf("unmerged paths: diff query failed, using the index stages: %v", err), "warning")

	paths, lsErr := s.unmergedIndexEntries(ctx)
	if lsErr != nil {
		return nil, errors.Join(err, lsErr)
	}
	return paths, nil
}

func (s *Service) unmergedIndexEntries(ctx context.Context) ([]string, error) {
	out, err := s.runGitAtRoot(ctx, []string{"git", "ls-files", "-u", "-z"}, []int{0})
	if err != nil {
		return nil, err
	}
	return parseLsFilesUnmerged(out), nil
}

// parseLsFilesUnmerged parses `git ls-files -u -z` entries ("mode sha stage\tpath"),
// returning each path once in order of first appearance.
func parseLsFilesUnmerged(raw string) []string {
	var paths []string
	seen := map[string]bool{}
	for _, entry := range strings.Split(raw, "\x00") {
		_, path, ok := strings.Cut(entry, "\t")
		if !ok || path == "" || seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	return paths
}

// splitNUL splits -z output. Paths are kept byte for byte: leading and
// trailing spaces are part of a file name.
func splitNUL(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, "\x00") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResolvePath maps a repository relative path to an absolute path inside the
// working tree. Absolute paths, paths climbing out of the root and symlinks
// pointing outside of it are rejected.
func (s *Service) ResolvePath(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRepo, path)
	}
	root, err := s.RepoRoot(context.Background())
	if err != nil {
		return "", err
	}

	full := filepath.Join(root, filepath.FromSlash(path))
	if !isPathWithin(root, full) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRepo, path)
	}
	if resolved, err := filepath.EvalSymlinks(full); err == nil && !isPathWithin(root, resolved) {
		return "", fmt.Errorf("%w: %q is a link leaving the repository", ErrPathOutsideRepo, path)
	}
	return full, nil
}

func isPathWithin(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false
	}
	return true
}

func classifyFSError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
}

// ReadWorkingFile reads a repository relative path from the working tree.
func (s *Service) ReadWorkingFile(_ context.Context, path string) ([]byte, error) {
	full, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is constrained to the repository root by ResolvePath
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, classifyFSError(path, err)
	}
	return data, nil
}

// WriteResolved replaces the working tree content of path, keeping its file mode.
func (s *Service) WriteResolved(_ context.Context, path, content string) error {
	full, err := s.ResolvePath(path)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(full, []byte(content), mode); err != nil {
		return classifyFSError(path, err)
	}
	s.debugf("wrote resolution for %s", path)
	return nil
}

// StageFile adds path to the index, marking it resolved.
func (s *Service) StageFile(ctx context.Context, path string) error {
	if _, err := s.ResolvePath(path); err != nil {
		return err
	}
	if _, err := s.runGitAtRoot(ctx, []string{"git", "add", "--", path}, []int{0}); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	return nil
}

// GetCommitFiles returns the files changed between parent and commit.
func (s *Service) GetCommitFiles(ctx context.Context, parent, commit string) ([]models.CommitFile, error) {
	raw, err := s.runGitAtRoot(ctx, []string{
		"git", "diff-tree", "-r", "-z", "--name-status", "--no-commit-id", parent, commit,
	}, []int{0})
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadableCommit, commit, err)
	}
	return parseCommitFiles(raw), nil
}

// DiffTrees returns the paths that differ between the trees of parent and commit.
// For renames and copies both the old and the new path are reported.
func (s *Service) DiffTrees(ctx context.Context, parent, commit string) ([]string, error) {
	files, err := s.GetCommitFiles(ctx, parent, commit)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Filename)
		if f.OldPath != "" {
			paths = append(paths, f.OldPath)
		}
	}
	return paths, nil
}

// parseCommitFiles parses the output of git diff-tree -z --name-status.
// Every status is followed by one path, or by the old and the new path for
// renames and copies ("R100\x00old\x00new"). Paths are not quoted with -z.
func parseCommitFiles(raw string) []models.CommitFile {
	fields := strings.Split(raw, "\x00")
	var files []models.CommitFile
	for i := 0; i+1 < len(fields); {
		changeType := fields[i]
		if changeType == "" {
			i++
			continue
		}
		if changeType[0] == 'R' || changeType[0] == 'C' {
			if i+2 >= len(fields) || fields[i+2] == "" {
				break
			}
			files = append(files, models.CommitFile{
				Filename:   fields[i+2],
				ChangeType: string(changeType[0]),
				OldPath:    fields[i+1],
			})
			i += 3
			continue
		}
		if fields[i+1] == "" {
			break
		}
		files = append(files, models.CommitFile{Filename: fields[i+1], ChangeType: changeType})
		i += 2
	}
	return files
}

// WorkingTreeModifiedPaths returns paths modified relative to the index or to HEAD.
func (s *Service) WorkingTreeModifiedPaths(ctx context.Context) ([]string, error) {
	againstIndex, indexErr := s.runGitAtRoot(ctx, []string{"git", "diff", "--name-only", "-z"}, []int{0})
	againstHead, headErr := s.runGitAtRoot(ctx, []string{"git", "diff", "--name-only", "-z", "HEAD"}, []int{0})
	if indexErr != nil && headErr != nil {
		return nil, errors.Join(indexErr, headErr)
	}
	if indexErr != nil || headErr != nil {
		s.notify(fmt.Sprintf("modified paths are partial: %v", errors.Join(indexErr, headErr)), "warning")
	}

	seen := map[string]bool{}
	var paths []string
	for _, p := range append(splitNUL(againstIndex), splitNUL(againstHead)...) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// ListCommits returns the commits reachable from source but not from target,
// oldest first.
func (s *Service) ListCommits(ctx context.Context, source, target string) ([]models.Commit, error) {
	if source == "" {
		return nil, fmt.Errorf("empty source revision")
	}
	rangeSpec := source
	if target != "" {
		rangeSpec = target + ".." + source
	}
	out, err := s.runGit(ctx, []string{
		"git", "log", "--reverse", "--format=%H%x1f%P%x1f%s%x1e", rangeSpec, "--",
	}, []int{0})
	if err != nil {
		return nil, err
	}
	return parseCommitLog(out), nil
}

// parseCommitLog parses records produced by --format=%H%x1f%P%x1f%s%x1e.
func parseCommitLog(raw string) []models.Commit {
	var commits []models.Commit
	for _, record := range strings.Split(raw, "\x1e") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, "\x1f", 3)
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		c := models.Commit{
			Hash:    fields[0],
			Parents: strings.Fields(fields[1]),
		}
		if len(fields) == 3 {
			c.Subject = fields[2]
		}
		commits = append(commits, c)
	}
	return commits
}
