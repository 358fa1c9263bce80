package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/logyard/queuedash/internal/model"
	"github.com/logyard/queuedash/internal/nav"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle   = lipgloss.NewStyle().Foreground(clrSubtle)
	dimStyle     = lipgloss.NewStyle().Foreground(clrDim)
	linkStyle    = lipgloss.NewStyle().Foreground(clrBlue).Underline(true)
	pathStyle    = lipgloss.NewStyle().Foreground(clrHighlight).Underline(true)
	selected     = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	statusLine   = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(0, 1)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed", "working", "in_progress", "executing":
		return lipgloss.NewStyle().Foreground(clrGreen)
	case "failed", "cancelled", "error":
		return lipgloss.NewStyle().Foreground(clrRed)
	case "pending", "queued", "idle":
		return lipgloss.NewStyle().Foreground(clrYellow)
	default:
		return lipgloss.NewStyle()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	if m.stack.IsOpen() {
		b.WriteString(m.viewModal())
	} else {
		b.WriteString(m.viewSummary())
	}
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m Model) viewSummary() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("queuedash"))
	if m.summary != nil {
		b.WriteString(dimStyle.Render("  updated " + m.summary.Timestamp.Local().Format("15:04:05")))
	}
	b.WriteString("\n")
	if m.summaryErr != "" {
		b.WriteString(errorStyle.Render("Error: "+m.summaryErr) + "\n")
	}
	if m.summary == nil {
		b.WriteString(dimStyle.Render("Loading...") + "\n")
		return b.String()
	}
	s := m.summary
	row := 0
	cursorLine := func(text string) {
		if row == m.cursor {
			b.WriteString(selected.Render("> " + text))
		} else {
			b.WriteString("  " + text)
		}
		b.WriteString("\n")
		row++
	}
	section := func(name string) {
		b.WriteString("\n" + headingStyle.Render(name))
		if msg, ok := s.Errors[name]; ok {
			b.WriteString(" " + errorStyle.Render(msg))
		}
		b.WriteString("\n")
	}

	section(model.SectionQueues)
	for _, q := range s.Queues {
		cursorLine(fmt.Sprintf("%-28s queued %-4d in progress %-4d done/1h %d",
			q.Label, q.Queued, q.InProgress, q.DoneLastHour))
	}

	section(model.SectionRootWorkItems)
	if len(s.RootWorkItems) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
	}
	for i, w := range s.RootWorkItems {
		if i == summaryWorkItems {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  +%d more", len(s.RootWorkItems)-summaryWorkItems)) + "\n")
			break
		}
		cursorLine(fmt.Sprintf("#%-5d %s %s", w.ID, statusStyle(string(w.Status)).Render(string(w.Status)), w.Title))
	}

	section(model.SectionAgents)
	for _, a := range s.Agents {
		label := a.Label
		if label == "" {
			label = a.Name
		}
		cursorLine(fmt.Sprintf("%-28s total %-3d working %-3d idle %d", label, a.Total, a.Working, a.Idle))
	}

	section(model.SectionAnnouncements)
	if len(s.Announcements) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
	}
	for i, a := range s.Announcements {
		if i == summaryAnnouncements {
			break
		}
		cursorLine(fmt.Sprintf("[%s] %s", a.Type, truncate(a.Message)))
	}
	return b.String()
}

func (m Model) viewModal() string {
	crumbs := strings.Join(m.stack.Titles(), " › ")
	header := titleStyle.Render(crumbs)
	if m.stack.BackVisible() {
		header = footerKeyStyle.Render("← esc") + "  " + header
	}
	body := header + "\n\n" + m.viewport.View()
	if m.width > 0 {
		return modalStyle.Width(m.width - 2).Render(body)
	}
	return modalStyle.Render(body)
}

// renderPane lays out a frame's content; the cursor marks the selected item.
func renderPane(p pane) string {
	if p.loading {
		return dimStyle.Render("Loading...")
	}
	if p.err != "" {
		return errorStyle.Render("Error: " + p.err)
	}
	var b strings.Builder
	for _, l := range p.lines {
		b.WriteString(l + "\n")
	}
	if len(p.items) > 0 {
		b.WriteString("\n" + headingStyle.Render("Open") + "\n")
		for i, it := range p.items {
			if i == p.cursor {
				b.WriteString(selected.Render("> "+it.label) + "\n")
			} else {
				b.WriteString("  " + it.label + "\n")
			}
		}
	}
	return b.String()
}

func (m Model) viewFooter() string {
	keys := [][2]string{{"j/k", "move"}, {"enter", "open"}, {"r", "refresh"}, {"q", "quit"}}
	if m.stack.IsOpen() {
		keys = [][2]string{{"j/k", "move"}, {"enter", "open"}, {"esc", "back"}, {"q", "quit"}}
	} else if m.cursor < len(m.rows) && m.rows[m.cursor].target.Kind == nav.KindAgent {
		keys = append(keys, [2]string{"s/x", "start/stop"})
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k[0])+" "+footerDescStyle.Render(k[1]))
	}
	footer := strings.Join(parts, "  ")
	if m.statusMsg != "" {
		footer = statusLine.Render(m.statusMsg) + "  " + footer
	}
	return footer
}
