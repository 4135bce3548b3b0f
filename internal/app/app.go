// Package app implements the interactive conflict browser.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/chmouel/lazyconflict/internal/config"
	"github.com/chmouel/lazyconflict/internal/log"
	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/chmouel/lazyconflict/internal/preview"
	"github.com/chmouel/lazyconflict/internal/scanner"
	"github.com/chmouel/lazyconflict/internal/theme"
)

// GitService is the repository access the browser needs.
type GitService interface {
	scanner.Provider
	preview.Provider
	WriteResolved(ctx context.Context, path, content string) error
	StageFile(ctx context.Context, path string) error
	ListCommits(ctx context.Context, source, target string) ([]models.Commit, error)
	CurrentBranch(ctx context.Context) (string, error)
	GitDir(ctx context.Context) (string, error)
}

type viewMode int

const (
	modeFile viewMode = iota
	modeHelp
	modePreview
	modeDiagnostics
)

// Model is the bubbletea model of the conflict browser.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	config *config.AppConfig
	git    GitService
	ring   *log.Ring
	theme  *theme.Theme
	styles styles
	keys   keyMap
	help   help.Model

	files     []models.ConflictFile
	fileIdx   int
	regionIdx int
	// working holds the in-memory resolution of each file, starting at its
	// raw content. history is the undo stack per path.
	working map[string]string
	history map[string][]string
	dirty   map[string]bool

	viewport viewport.Model
	input    textinput.Model
	inputOn  bool
	mode     viewMode
	preview  *models.MergePreview

	width, height int
	loading       bool
	status        string
	statusIsError bool
	confirmQuit   bool
	quitting      bool

	watch *gitWatcher
}

// NewModel creates the browser model. ring receives scan and preview
// diagnostics and may be nil.
func NewModel(cfg *config.AppConfig, git GitService, ring *log.Ring) *Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if ring == nil {
		ring = log.NewRing(cfg.DiagnosticsCapacity)
	}
	ctx, cancel := context.WithCancel(context.Background())
	th := theme.GetTheme(cfg.Theme)

	input := textinput.New()
	input.Prompt = "source branch: "
	input.Placeholder = "feature"
	input.CharLimit = 200

	return &Model{
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
		git:      git,
		ring:     ring,
		theme:    th,
		styles:   newStyles(th),
		keys:     defaultKeyMap(),
		help:     help.New(),
		working:  map[string]string{},
		history:  map[string][]string{},
		dirty:    map[string]bool{},
		viewport: viewport.New(0, 0),
		input:    input,
		loading:  true,
	}
}

// Init starts the first scan and the git directory watcher.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(), m.startGitWatcher())
}

// Close releases the watcher and cancels pending git calls.
func (m *Model) Close() {
	m.stopGitWatcher()
	m.cancel()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case filesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError(fmt.Errorf("scan failed: %w", msg.err))
			return m, nil
		}
		m.applyFiles(msg.files)
		return m, nil

	case fileWrittenMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		delete(m.dirty, msg.path)
		delete(m.history, msg.path)
		if msg.staged {
			m.setStatus(fmt.Sprintf("%s resolved and staged", msg.path))
		} else {
			m.setStatus(fmt.Sprintf("%s written", msg.path))
		}
		return m, m.scanCmd()

	case previewLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		p := msg.preview
		m.preview = &p
		m.mode = modePreview
		m.refreshContent()
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("editor: %w", msg.err))
		}
		return m, m.scanCmd()

	case gitDirChangedMsg:
		cmd := m.rearmGitWatch()
		if m.shouldRefreshGitEvent() {
			return m, tea.Batch(m.scanCmd(), cmd)
		}
		return m, cmd

	case errMsg:
		m.setError(msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

func (m *Model) debugf(format string, args ...any) {
	m.ring.Printf(format, args...)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusIsError = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusIsError = true
	m.debugf("error: %v", err)
}

func (m *Model) currentFile() *models.ConflictFile {
	if m.fileIdx < 0 || m.fileIdx >= len(m.files) {
		return nil
	}
	return &m.files[m.fileIdx]
}

func (m *Model) resize() {
	_, rightW, bodyH := m.layout()
	m.viewport.Width = max(rightW-2, 0)
	m.viewport.Height = max(bodyH-2, 0)
	m.help.Width = m.width
	m.refreshContent()
}
