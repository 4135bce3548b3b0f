package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chmouel/lazyconflict/internal/conflict"
	"github.com/chmouel/lazyconflict/internal/models"
	"github.com/chmouel/lazyconflict/internal/theme"
	"github.com/muesli/reflow/truncate"
)

type styles struct {
	pane      lipgloss.Style
	title     lipgloss.Style
	selected  lipgloss.Style
	muted     lipgloss.Style
	text      lipgloss.Style
	current   lipgloss.Style
	incoming  lipgloss.Style
	marker    lipgloss.Style
	gutter    lipgloss.Style
	status    lipgloss.Style
	statusErr lipgloss.Style
	riskLow   lipgloss.Style
	riskMid   lipgloss.Style
	riskHigh  lipgloss.Style
}

func newStyles(th *theme.Theme) styles {
	return styles{
		pane:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(th.Border),
		title:     lipgloss.NewStyle().Bold(true).Foreground(th.Accent),
		selected:  lipgloss.NewStyle().Background(th.Accent).Foreground(th.AccentFg).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(th.MutedFg),
		text:      lipgloss.NewStyle().Foreground(th.TextFg),
		current:   lipgloss.NewStyle().Foreground(th.Current),
		incoming:  lipgloss.NewStyle().Foreground(th.Incoming),
		marker:    lipgloss.NewStyle().Foreground(th.Marker).Bold(true),
		gutter:    lipgloss.NewStyle().Foreground(th.Accent),
		status:    lipgloss.NewStyle().Foreground(th.MutedFg),
		statusErr: lipgloss.NewStyle().Foreground(th.ErrorFg).Bold(true),
		riskLow:   lipgloss.NewStyle().Foreground(th.Current).Bold(true),
		riskMid:   lipgloss.NewStyle().Foreground(th.WarnFg).Bold(true),
		riskHigh:  lipgloss.NewStyle().Foreground(th.ErrorFg).Bold(true),
	}
}

const (
	minListWidth = 24
	maxListWidth = 48
	chromeLines  = 3 // header, status and help lines
)

// layout returns the outer width of both panes and their shared height.
func (m *Model) layout() (int, int, int) {
	left := max(minListWidth, min(maxListWidth, m.width/3))
	if left > m.width {
		left = m.width
	}
	return left, max(m.width-left, 0), max(m.height-chromeLines, 0)
}

func (m *Model) render() string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	leftW, rightW, bodyH := m.layout()

	header := m.renderHeader()
	left := m.styles.pane.Width(max(leftW-2, 0)).Height(max(bodyH-2, 0)).
		Render(m.renderFileList(max(leftW-2, 0), max(bodyH-2, 0)))
	right := m.styles.pane.Width(max(rightW-2, 0)).Height(max(bodyH-2, 0)).
		Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatus(), m.renderFooter())
}

func (m *Model) renderHeader() string {
	title := m.styles.title.Render("lazyconflict")
	var info string
	switch {
	case m.loading:
		info = "scanning…"
	case len(m.files) == 0:
		info = "no conflicted files"
	default:
		info = fmt.Sprintf("%d conflicted file(s)", len(m.files))
		if f := m.currentFile(); f != nil {
			if n := m.regionCount(); n > 0 {
				info += fmt.Sprintf(" · %s region %d/%d", f.Path, m.regionIdx+1, n)
			} else {
				info += fmt.Sprintf(" · %s resolved, press w to write", f.Path)
			}
		}
	}
	return truncate.StringWithTail(title+" "+m.styles.muted.Render(info), uint(max(m.width, 0)), "…")
}

func (m *Model) renderFileList(width, height int) string {
	if len(m.files) == 0 {
		return m.styles.muted.Render(truncate.StringWithTail("nothing to resolve", uint(width), "…"))
	}
	start := 0
	if m.fileIdx >= height && height > 0 {
		start = m.fileIdx - height + 1
	}

	lines := make([]string, 0, height)
	for i := start; i < len(m.files) && len(lines) < height; i++ {
		f := m.files[i]
		mark := " "
		if m.dirty[f.Path] {
			mark = iconDirty
		}
		count := conflict.CountRegions(m.working[f.Path])
		icon := ""
		if m.config.ShowIcons {
			icon = iconWithSpace(fileIcon(f.Path))
		}
		suffix := fmt.Sprintf(" %d", count)
		name := truncate.StringWithTail(icon+f.Path, uint(max(width-len(suffix)-2, 1)), "…")
		line := fmt.Sprintf("%s %s", mark, name)
		pad := max(width-lipgloss.Width(line)-len(suffix), 0)
		line += strings.Repeat(" ", pad) + suffix
		if i == m.fileIdx {
			line = m.styles.selected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	st := m.styles.status
	if m.statusIsError {
		st = m.styles.statusErr
	}
	return st.Render(truncate.StringWithTail(m.status, uint(max(m.width, 0)), "…"))
}

func (m *Model) renderFooter() string {
	if m.inputOn {
		return m.input.View()
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

// refreshContent re-renders the right pane for the current mode.
func (m *Model) refreshContent() {
	width := m.viewport.Width
	switch m.mode {
	case modeHelp:
		m.viewport.SetContent(m.help.FullHelpView(m.keys.FullHelp()))
		m.viewport.GotoTop()
	case modePreview:
		m.viewport.SetContent(renderPreview(m.preview, width, m.styles))
		m.viewport.GotoTop()
	case modeDiagnostics:
		m.viewport.SetContent(m.renderDiagnostics(width))
		m.viewport.GotoBottom()
	default:
		_, text, ok := m.workingText()
		if !ok {
			m.viewport.SetContent("")
			return
		}
		content, offset := renderConflictText(text, m.regionIdx, width, m.styles)
		m.viewport.SetContent(content)
		m.viewport.SetYOffset(max(offset-2, 0))
	}
}

type lineKind int

const (
	linePlain lineKind = iota
	lineMarker
	lineCurrent
	lineIncoming
)

// renderConflictText colors the sides of every region and flags the selected
// one in the gutter. It returns the line where the selected region starts.
func renderConflictText(text string, selected, width int, st styles) (string, int) {
	lines := strings.Split(text, "\n")
	kinds := make([]lineKind, len(lines))
	inSelected := make([]bool, len(lines))
	offset := 0

	regions, _ := conflict.ParseAllConflictRegions(text)
	for i, r := range regions {
		kinds[r.StartLine] = lineMarker
		kinds[r.SeparatorLine] = lineMarker
		kinds[r.EndLine] = lineMarker
		for l := r.StartLine + 1; l < r.SeparatorLine; l++ {
			kinds[l] = lineCurrent
		}
		for l := r.SeparatorLine + 1; l < r.EndLine; l++ {
			kinds[l] = lineIncoming
		}
		if i == selected {
			offset = r.StartLine
			for l := r.StartLine; l <= r.EndLine; l++ {
				inSelected[l] = true
			}
		}
	}

	numWidth := len(fmt.Sprint(len(lines)))
	textWidth := max(width-numWidth-3, 1)

	var b strings.Builder
	for i, line := range lines {
		if i == len(lines)-1 && line == "" {
			break
		}
		gutter := "  "
		if inSelected[i] {
			gutter = st.gutter.Render("▌ ")
		}
		num := st.muted.Render(fmt.Sprintf("%*d ", numWidth, i+1))
		line = strings.TrimSuffix(line, "\r")
		line = strings.ReplaceAll(line, "\t", "    ")
		line = truncate.StringWithTail(line, uint(textWidth), "…")

		switch kinds[i] {
		case lineMarker:
			line = st.marker.Render(line)
		case lineCurrent:
			line = st.current.Render(line)
		case lineIncoming:
			line = st.incoming.Render(line)
		default:
			line = st.text.Render(line)
		}
		b.WriteString(gutter)
		b.WriteString(num)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), offset
}

func renderPreview(p *models.MergePreview, width int, st styles) string {
	if p == nil {
		return st.muted.Render("no preview yet, press P")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s → %s\n\n", st.title.Render("Merge preview"), p.SourceBranch, p.TargetBranch)

	risk := st.riskLow
	switch p.ConflictRisk {
	case models.RiskMedium:
		risk = st.riskMid
	case models.RiskHigh:
		risk = st.riskHigh
	}
	fmt.Fprintf(&b, "Conflict risk: %s\n", risk.Render(p.ConflictRisk.String()))
	fmt.Fprintf(&b, "Files touched: %d\n", p.TotalFiles)
	fmt.Fprintf(&b, "Overlapping with local changes: %d\n", len(p.OverlappingFiles))
	for _, f := range p.OverlappingFiles {
		fmt.Fprintf(&b, "  %s\n", truncate.StringWithTail(f, uint(max(width-2, 1)), "…"))
	}
	fmt.Fprintf(&b, "\nCommits (%d):\n", len(p.Commits))
	for _, c := range p.Commits {
		line := fmt.Sprintf("%s %s", c.ShortHash(), c.Subject)
		fmt.Fprintf(&b, "  %s\n", truncate.StringWithTail(line, uint(max(width-2, 1)), "…"))
	}
	return b.String()
}

func (m *Model) renderDiagnostics(width int) string {
	entries := m.ring.Entries()
	if len(entries) == 0 {
		return m.styles.muted.Render("no diagnostics recorded")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/%d)\n", m.styles.title.Render("Diagnostics"), len(entries), m.ring.Cap())
	for _, e := range entries {
		line := e.Time.Format("15:04:05.000") + " " + e.Message
		b.WriteString(truncate.StringWithTail(line, uint(max(width, 1)), "…"))
		b.WriteByte('\n')
	}
	return b.String()
}
