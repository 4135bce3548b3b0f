package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/chmouel/lazyconflict/internal/conflict"
	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/chmouel/lazyconflict/internal/preview"
	"github.com/chmouel/lazyconflict/internal/scanner"
)

const statusRescanning = "rescanning…"

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.inputOn {
		return m.handleInputKey(msg)
	}
	if !key.Matches(msg, m.keys.Quit) {
		m.confirmQuit = false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Back):
		m.mode = modeFile
		m.refreshContent()
	case key.Matches(msg, m.keys.Help):
		m.toggleMode(modeHelp)
	case key.Matches(msg, m.keys.Diagnostics):
		m.toggleMode(modeDiagnostics)
	case key.Matches(msg, m.keys.Preview):
		m.inputOn = true
		m.input.SetValue("")
		return m.input.Focus()
	case key.Matches(msg, m.keys.Refresh):
		m.setStatus(statusRescanning)
		return m.scanCmd()
	case key.Matches(msg, m.keys.Down):
		m.selectFile(m.fileIdx + 1)
	case key.Matches(msg, m.keys.Up):
		m.selectFile(m.fileIdx - 1)
	case key.Matches(msg, m.keys.NextRegion):
		m.selectRegion(m.regionIdx + 1)
	case key.Matches(msg, m.keys.PrevRegion):
		m.selectRegion(m.regionIdx - 1)
	case key.Matches(msg, m.keys.KeepCurrent):
		m.resolveRegion(models.SideCurrent)
	case key.Matches(msg, m.keys.KeepIncoming):
		m.resolveRegion(models.SideIncoming)
	case key.Matches(msg, m.keys.KeepBoth):
		m.resolveRegion(models.SideBoth)
	case key.Matches(msg, m.keys.AllCurrent):
		m.resolveFile(models.SideCurrent)
	case key.Matches(msg, m.keys.AllIncoming):
		m.resolveFile(models.SideIncoming)
	case key.Matches(msg, m.keys.AllBoth):
		m.resolveFile(models.SideBoth)
	case key.Matches(msg, m.keys.Undo):
		m.undo()
	case key.Matches(msg, m.keys.Write):
		return m.writeCurrent()
	case key.Matches(msg, m.keys.Edit):
		return m.openEditor()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputOn = false
		m.input.Blur()
		return nil
	case tea.KeyEnter:
		m.inputOn = false
		m.input.Blur()
		source := strings.TrimSpace(m.input.Value())
		if source == "" {
			m.setError(fmt.Errorf("source branch is required"))
			return nil
		}
		m.loading = true
		m.setStatus(fmt.Sprintf("analysing %s…", source))
		return m.previewCmd(source)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) quit() tea.Cmd {
	if len(m.dirty) > 0 && !m.confirmQuit {
		m.confirmQuit = true
		m.setError(fmt.Errorf("%d file(s) have unwritten resolutions, press q again to quit", len(m.dirty)))
		return nil
	}
	m.quitting = true
	m.Close()
	return tea.Quit
}

func (m *Model) toggleMode(mode viewMode) {
	if m.mode == mode {
		m.mode = modeFile
	} else {
		m.mode = mode
	}
	m.refreshContent()
}

func (m *Model) scanCmd() tea.Cmd {
	if m.git == nil {
		return nil
	}
	ctx, git, ring, concurrency := m.ctx, m.git, m.ring, m.config.ScanConcurrency
	return func() tea.Msg {
		s := scanner.New(git, scanner.WithLogger(ring), scanner.WithConcurrency(concurrency))
		files, err := s.FindConflictedFiles(ctx)
		return filesLoadedMsg{files: files, err: err}
	}
}

// applyFiles replaces the file list with a new scan result. Unwritten
// resolutions survive as long as their file is still conflicted.
func (m *Model) applyFiles(files []models.ConflictFile) {
	var selected string
	if f := m.currentFile(); f != nil {
		selected = f.Path
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
		if !m.dirty[f.Path] {
			m.working[f.Path] = f.RawContent
			delete(m.history, f.Path)
		}
	}
	for path := range m.working {
		if !present[path] {
			delete(m.working, path)
			delete(m.history, path)
			delete(m.dirty, path)
		}
	}

	m.files = files
	m.fileIdx = 0
	for i, f := range files {
		if f.Path == selected {
			m.fileIdx = i
			break
		}
	}
	m.clampRegion()
	if m.status == statusRescanning {
		m.setStatus("")
	}
	m.refreshContent()
}

func (m *Model) selectFile(idx int) {
	if len(m.files) == 0 {
		return
	}
	idx = max(0, min(idx, len(m.files)-1))
	if idx == m.fileIdx {
		return
	}
	m.fileIdx = idx
	m.regionIdx = 0
	m.mode = modeFile
	m.refreshContent()
}

func (m *Model) selectRegion(idx int) {
	n := m.regionCount()
	if n == 0 {
		return
	}
	m.regionIdx = max(0, min(idx, n-1))
	m.mode = modeFile
	m.refreshContent()
}

func (m *Model) workingText() (string, string, bool) {
	f := m.currentFile()
	if f == nil {
		return "", "", false
	}
	text, ok := m.working[f.Path]
	if !ok {
		text = f.RawContent
	}
	return f.Path, text, true
}

func (m *Model) regionCount() int {
	_, text, ok := m.workingText()
	if !ok {
		return 0
	}
	return conflict.CountRegions(text)
}

func (m *Model) clampRegion() {
	n := m.regionCount()
	if m.regionIdx >= n {
		m.regionIdx = n - 1
	}
	if m.regionIdx < 0 {
		m.regionIdx = 0
	}
}

func (m *Model) commit(path, before, after, what string) {
	m.history[path] = append(m.history[path], before)
	m.working[path] = after
	m.dirty[path] = true
	m.clampRegion()
	m.mode = modeFile
	m.refreshContent()
	left := conflict.CountRegions(after)
	m.setStatus(fmt.Sprintf("%s: %s, %d region(s) left", path, what, left))
}

func (m *Model) resolveRegion(side models.Side) {
	path, text, ok := m.workingText()
	if !ok || m.regionCount() == 0 {
		return
	}
	out, err := conflict.ResolveConflictRegion(text, m.regionIdx, side)
	if err != nil {
		m.setError(err)
		return
	}
	m.commit(path, text, out, fmt.Sprintf("kept %s in region %d", side, m.regionIdx+1))
}

func (m *Model) resolveFile(side models.Side) {
	path, text, ok := m.workingText()
	if !ok || m.regionCount() == 0 {
		return
	}
	var out string
	var err error
	if side == models.SideBoth {
		out, err = conflict.ResolveConflictAcceptBoth(text)
	} else {
		out, err = conflict.ResolveConflictAccept(text, side)
	}
	if err != nil {
		m.setError(err)
		return
	}
	m.regionIdx = 0
	m.commit(path, text, out, fmt.Sprintf("kept %s everywhere", side))
}

func (m *Model) undo() {
	f := m.currentFile()
	if f == nil {
		return
	}
	stack := m.history[f.Path]
	if len(stack) == 0 {
		m.setStatus("nothing to undo")
		return
	}
	m.working[f.Path] = stack[len(stack)-1]
	m.history[f.Path] = stack[:len(stack)-1]
	if len(m.history[f.Path]) == 0 {
		delete(m.dirty, f.Path)
	}
	m.clampRegion()
	m.refreshContent()
	m.setStatus(fmt.Sprintf("%s: undone", f.Path))
}

func (m *Model) writeCurrent() tea.Cmd {
	path, text, ok := m.workingText()
	if !ok {
		return nil
	}
	if !m.dirty[path] {
		m.setStatus("nothing to write")
		return nil
	}
	stage := m.config.StageOnWrite && conflict.CountRegions(text) == 0
	ctx, git := m.ctx, m.git
	return func() tea.Msg {
		if err := git.WriteResolved(ctx, path, text); err != nil {
			return fileWrittenMsg{path: path, err: err}
		}
		if stage {
			if err := git.StageFile(ctx, path); err != nil {
				return fileWrittenMsg{path: path, err: err}
			}
		}
		return fileWrittenMsg{path: path, staged: stage}
	}
}

func (m *Model) previewCmd(source string) tea.Cmd {
	ctx, git, ring, cfg := m.ctx, m.git, m.ring, m.config
	return func() tea.Msg {
		target := cfg.DefaultTarget
		if target == "" {
			branch, err := git.CurrentBranch(ctx)
			if err != nil {
				return previewLoadedMsg{err: fmt.Errorf("cannot determine target branch: %w", err)}
			}
			target = branch
		}
		commits, err := git.ListCommits(ctx, source, target)
		if err != nil {
			return previewLoadedMsg{err: err}
		}
		analyzer := preview.New(git,
			preview.WithLogger(ring),
			preview.WithCommitLimit(cfg.PreviewCommitLimit),
			preview.WithConcurrency(cfg.ScanConcurrency),
		)
		return previewLoadedMsg{preview: analyzer.GenerateMergePreview(ctx, source, target, commits)}
	}
}
