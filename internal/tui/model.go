// Package tui is the terminal dashboard: the status summary with the same
// drill-down navigation stack as the web client.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/logyard/queuedash/internal/annotate"
	"github.com/logyard/queuedash/internal/model"
	"github.com/logyard/queuedash/internal/nav"
)

// Summary limits match the web client.
const (
	summaryWorkItems     = 5
	summaryAnnouncements = 3
	truncateAt           = 80
)

// RefreshInterval is how often the summary is polled.
var RefreshInterval = 5 * time.Second

const fetchTimeout = 10 * time.Second

// API is the part of the dashboard client the TUI uses.
type API interface {
	Status(ctx context.Context) (*model.StatusSummary, error)
	Queue(ctx context.Context, name string) (*model.QueueDetail, error)
	Task(ctx context.Context, id int64) (*model.TaskDetail, error)
	RootWorkItem(ctx context.Context, id int64) (*model.RootWorkItemDetail, error)
	Agent(ctx context.Context, name string) (*model.AgentDetail, error)
	Announcement(ctx context.Context, id int64) (*model.AnnouncementDetail, error)
	File(ctx context.Context, path string) (*model.FileView, error)
	StartAgent(ctx context.Context, agentType string) error
	StopAgent(ctx context.Context, agentType string) error
}

// item is a selectable line that drills into a target.
type item struct {
	label  string
	target nav.Target
	// href is set for links that open outside the dashboard.
	href string
}

// pane is the content of one navigation frame.
type pane struct {
	target  nav.Target
	lines   []string
	items   []item
	cursor  int
	loading bool
	err     string
}

// Model is the top-level bubbletea model.
type Model struct {
	api       API
	annotator *annotate.Annotator
	width     int
	height    int

	summary    *model.StatusSummary
	summaryErr string
	refreshing bool
	rows       []item
	cursor     int

	stack    nav.Stack[pane]
	viewport viewport.Model

	statusMsg  string
	statusTime time.Time

	quitting bool
}

// New creates a new TUI model.
func New(api API, annotator *annotate.Annotator) Model {
	return Model{
		api:       api,
		annotator: annotator,
		viewport:  viewport.New(80, 20),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadStatus(), tickCmd())
}

type tickMsg time.Time

type statusLoadedMsg struct {
	summary *model.StatusSummary
	err     error
}

type detailLoadedMsg struct {
	target nav.Target
	pane   pane
	err    error
}

type actionDoneMsg struct {
	text string
	err  error
}

func tickCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		s, err := m.api.Status(ctx)
		return statusLoadedMsg{summary: s, err: err}
	}
}

func (m Model) loadDetail(target nav.Target) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		p, err := m.fetchPane(ctx, target)
		return detailLoadedMsg{target: target, pane: p, err: err}
	}
}

func (m Model) agentAction(name string, start bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if start {
			return actionDoneMsg{text: "Started " + name, err: m.api.StartAgent(ctx, name)}
		}
		return actionDoneMsg{text: "Stopped " + name, err: m.api.StopAgent(ctx, name)}
	}
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusTime = time.Now()
}

// rebuildRows lists the summary's selectable rows in display order.
func (m *Model) rebuildRows() {
	var rows []item
	defer func() {
		m.rows = rows
		m.cursor = clamp(m.cursor, len(rows))
	}()
	if m.summary == nil {
		return
	}
	for _, q := range m.summary.Queues {
		rows = append(rows, item{label: q.Name, target: nav.Target{Kind: nav.KindQueue, Key: q.Name}})
	}
	for i, w := range m.summary.RootWorkItems {
		if i == summaryWorkItems {
			break
		}
		rows = append(rows, item{label: w.Title, target: nav.Target{Kind: nav.KindRootWorkItem, Key: itoa(w.ID)}})
	}
	for _, a := range m.summary.Agents {
		rows = append(rows, item{label: a.Name, target: nav.Target{Kind: nav.KindAgent, Key: a.Name}})
	}
	for i, a := range m.summary.Announcements {
		if i == summaryAnnouncements {
			break
		}
		rows = append(rows, item{label: truncate(a.Message), target: nav.Target{Kind: nav.KindAnnouncement, Key: itoa(a.ID)}})
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
