package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/chmouel/lazyconflict/internal/config"
	"github.com/chmouel/lazyconflict/internal/log"
	"github.com/chmouel/lazyconflict/internal/models"
)

// fileSelector abstracts interactive file selection for testability.
type fileSelector func(files []models.ConflictFile, stdin io.Reader, stderr io.Writer) (string, error)

// selectFileFunc is replaced in tests to avoid fzf and stdin.
var selectFileFunc fileSelector = selectFileDefault

// fzfLookPath is a package-level variable for exec.LookPath, replaceable in tests.
var fzfLookPath = exec.LookPath

// SelectConflictedFile scans the repository and asks the user to pick one of
// the conflicted files. A single conflicted file is returned without asking.
// fzf is used when installed, otherwise a numbered prompt on stderr.
func SelectConflictedFile(ctx context.Context, gitSvc gitService, cfg *config.AppConfig, logger log.Logger, stdin io.Reader, stderr io.Writer) (string, error) {
	files, err := scan(ctx, gitSvc, cfg, logger)
	if err != nil {
		return "", err
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("no conflicted files found")
	case 1:
		return files[0].Path, nil
	}
	return selectFileFunc(files, stdin, stderr)
}

func selectFileDefault(files []models.ConflictFile, stdin io.Reader, stderr io.Writer) (string, error) {
	if _, err := fzfLookPath("fzf"); err == nil {
		return selectFileWithFzf(files, stderr)
	}
	return selectFileWithPrompt(files, stdin, stderr)
}

func fzfLines(files []models.ConflictFile) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("%d\t%s", len(f.Regions), f.Path))
	}
	return strings.Join(lines, "\n")
}

func selectFileWithFzf(files []models.ConflictFile, stderr io.Writer) (string, error) {
	//nolint:gosec // static arguments, file names only reach fzf on stdin
	cmd := exec.Command("fzf",
		"--ansi",
		"--delimiter", "\t",
		"--prompt", "Select file> ",
		"--header", "Conflicted files (regions, path)",
		"--preview", "git diff --color=always -- {2}",
		"--preview-window", "wrap:down:60%",
	)
	cmd.Stdin = strings.NewReader(fzfLines(files))
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("file selection cancelled")
	}
	return parseSelectedLine(string(out), files)
}

// parseSelectedLine maps an fzf output line back to a known path.
func parseSelectedLine(line string, files []models.ConflictFile) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no file selected")
	}
	_, path, ok := strings.Cut(line, "\t")
	if !ok {
		return "", fmt.Errorf("unexpected line format: %q", line)
	}
	for _, f := range files {
		if f.Path == path {
			return path, nil
		}
	}
	return "", fmt.Errorf("file %q is not conflicted", path)
}

func selectFileWithPrompt(files []models.ConflictFile, stdin io.Reader, stderr io.Writer) (string, error) {
	fmt.Fprintf(stderr, "\nConflicted files:\n\n")
	for i, f := range files {
		fmt.Fprintf(stderr, "  [%d] %s (%d)\n", i+1, f.Path, len(f.Regions))
	}
	fmt.Fprintf(stderr, "\nSelect file [1-%d]: ", len(files))

	sc := bufio.NewScanner(stdin)
	if !sc.Scan() {
		return "", fmt.Errorf("file selection cancelled")
	}
	text := strings.TrimSpace(sc.Text())
	if text == "" {
		return "", fmt.Errorf("no file selected")
	}
	idx, err := strconv.Atoi(text)
	if err != nil {
		return "", fmt.Errorf("invalid selection: %q", text)
	}
	if idx < 1 || idx > len(files) {
		return "", fmt.Errorf("selection out of range: %d (must be 1-%d)", idx, len(files))
	}
	return files[idx-1].Path, nil
}
