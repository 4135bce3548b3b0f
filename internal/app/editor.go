package app

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// shellQuote quotes a string for use in a shell command.
func shellQuote(input string) string {
	if input == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(input, "'", "'\"'\"'") + "'"
}

// editorCommand returns the editor command line: lc.editor, then $EDITOR, then vi.
func editorCommand(configured string) string {
	editor := strings.TrimSpace(configured)
	if editor == "" {
		editor = strings.TrimSpace(os.Getenv("EDITOR"))
	}
	if editor == "" {
		editor = "vi"
	}
	return editor
}

// editorInvocation runs the editor through the user's shell so that
// configured arguments and quoting behave as they do on a prompt.
func editorInvocation(editor, path string) (string, []string) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "sh"
	}
	return shell, []string{"-c", editor + " " + shellQuote(path)}
}

func (m *Model) openEditor() tea.Cmd {
	f := m.currentFile()
	if f == nil {
		return nil
	}
	if m.dirty[f.Path] {
		m.setError(fmt.Errorf("%s has unwritten resolutions, write or undo them first", f.Path))
		return nil
	}
	full, err := m.git.ResolvePath(f.Path)
	if err != nil {
		m.setError(err)
		return nil
	}
	shell, args := editorInvocation(editorCommand(m.config.Editor), full)
	m.debugf("editor: %s %s", shell, strings.Join(args, " "))
	path := f.Path
	// #nosec G204 -- the editor comes from the user's own configuration
	c := exec.Command(shell, args...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{path: path, err: err}
	})
}
