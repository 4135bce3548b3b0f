package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) startGitWatcher() tea.Cmd {
	if !m.config.AutoRefresh || m.git == nil {
		return nil
	}
	if m.watch != nil && m.watch.started {
		return nil
	}
	if m.watch == nil {
		m.watch = newGitWatcher(m.git, m.debugf)
	}
	started, err := m.watch.start(m.ctx)
	if err != nil {
		return func() tea.Msg {
			return errMsg{err: err}
		}
	}
	if !started {
		return nil
	}
	return m.waitForGitWatchEvent()
}

func (m *Model) stopGitWatcher() {
	if m.watch == nil || !m.watch.started {
		return
	}
	m.watch.stop()
}

func (m *Model) waitForGitWatchEvent() tea.Cmd {
	if m.watch == nil {
		return nil
	}
	events := m.watch.nextEvent()
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return gitDirChangedMsg{}
	}
}

// rearmGitWatch clears the pending receive and waits for the next event.
func (m *Model) rearmGitWatch() tea.Cmd {
	if m.watch == nil {
		return nil
	}
	m.watch.resetWaiting()
	return m.waitForGitWatchEvent()
}

func (m *Model) shouldRefreshGitEvent() bool {
	if m.watch == nil {
		return false
	}
	return m.watch.shouldRefresh(time.Now())
}
