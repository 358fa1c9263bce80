package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/logyard/queuedash/internal/nav"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-4, 20)
		m.viewport.Height = max(msg.Height-6, 6)
		m.syncViewport()
		return m, nil

	case statusLoadedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.summaryErr = msg.err.Error()
			return m, nil
		}
		m.summaryErr = ""
		m.summary = msg.summary
		m.rebuildRows()
		return m, nil

	case detailLoadedMsg:
		top, ok := m.stack.Top()
		// The user may have moved on before the fetch finished.
		if !ok || top.Content.target != msg.target || !top.Content.loading {
			return m, nil
		}
		p := msg.pane
		if msg.err != nil {
			p = pane{target: msg.target, err: msg.err.Error()}
		}
		m.stack = m.stack.Replace(p)
		m.viewport.GotoTop()
		m.syncViewport()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.setStatus("Failed: " + msg.err.Error())
			return m, nil
		}
		m.setStatus(msg.text)
		m.refreshing = true
		return m, m.loadStatus()

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		// The summary keeps refreshing under an open modal; cached frames do not.
		if !m.refreshing {
			m.refreshing = true
			cmds = append(cmds, m.loadStatus())
		}
		return m, tea.Batch(cmds...)
	}

	if m.stack.IsOpen() {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "r":
		m.refreshing = true
		m.setStatus("Refreshing...")
		return m, m.loadStatus()
	}

	if m.stack.IsOpen() {
		return m.handleModalKey(msg)
	}

	switch msg.String() {
	case "j", "down":
		m.cursor = clamp(m.cursor+1, len(m.rows))
	case "k", "up":
		m.cursor = clamp(m.cursor-1, len(m.rows))
	case "enter":
		if m.cursor < len(m.rows) {
			return m.open(m.rows[m.cursor], false)
		}
	case "s", "x":
		if m.cursor < len(m.rows) && m.rows[m.cursor].target.Kind == nav.KindAgent {
			name := m.rows[m.cursor].target.Key
			return m, m.agentAction(name, msg.String() == "s")
		}
	}
	return m, nil
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	top, _ := m.stack.Top()
	p := top.Content

	switch msg.String() {
	case "esc", "backspace", "h", "left":
		m.stack = m.stack.Back()
		m.viewport.GotoTop()
		m.syncViewport()
		return m, nil
	case "j", "down":
		p.cursor = clamp(p.cursor+1, len(p.items))
		m.stack = m.stack.Replace(p)
		m.syncViewport()
		return m, nil
	case "k", "up":
		p.cursor = clamp(p.cursor-1, len(p.items))
		m.stack = m.stack.Replace(p)
		m.syncViewport()
		return m, nil
	case "enter":
		if p.cursor < len(p.items) {
			return m.open(p.items[p.cursor], true)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// open shows a target: the first drill-down opens the modal, later ones
// push onto it. External links are only shown, never fetched.
func (m Model) open(it item, push bool) (tea.Model, tea.Cmd) {
	if it.target.Kind == nav.KindURL {
		m.setStatus("Open in browser: " + it.href)
		return m, nil
	}
	placeholder := pane{target: it.target, loading: true}
	if push {
		m.stack = m.stack.Push(title(it.target), placeholder)
	} else {
		m.stack = m.stack.Open(title(it.target), placeholder)
	}
	m.viewport.GotoTop()
	m.syncViewport()
	return m, m.loadDetail(it.target)
}

func (m *Model) syncViewport() {
	top, ok := m.stack.Top()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(renderPane(top.Content))
}
