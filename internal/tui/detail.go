package tui

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/logyard/queuedash/internal/annotate"
	"github.com/logyard/queuedash/internal/model"
	"github.com/logyard/queuedash/internal/nav"
)

// title is the frame title for a target, before its content is known.
func title(t nav.Target) string {
	switch t.Kind {
	case nav.KindQueue:
		return "Queue: " + t.Key
	case nav.KindTask:
		return "Task #" + t.Key
	case nav.KindRootWorkItem:
		return "Root Work Item #" + t.Key
	case nav.KindAgent:
		return "Agent: " + t.Key
	case nav.KindAnnouncement:
		return "Announcement #" + t.Key
	case nav.KindFile:
		return path.Base(t.Key)
	default:
		return t.Key
	}
}

// fetchPane loads a target through the API and lays it out.
func (m Model) fetchPane(ctx context.Context, t nav.Target) (pane, error) {
	b := &paneBuilder{pane: pane{target: t}, annotator: m.annotator}
	switch t.Kind {
	case nav.KindQueue:
		d, err := m.api.Queue(ctx, t.Key)
		if err != nil {
			return pane{}, err
		}
		b.queue(d)
	case nav.KindTask:
		id, err := strconv.ParseInt(t.Key, 10, 64)
		if err != nil {
			return pane{}, fmt.Errorf("invalid task id %q", t.Key)
		}
		d, err := m.api.Task(ctx, id)
		if err != nil {
			return pane{}, err
		}
		b.task(d)
	case nav.KindRootWorkItem:
		id, err := strconv.ParseInt(t.Key, 10, 64)
		if err != nil {
			return pane{}, fmt.Errorf("invalid root work item id %q", t.Key)
		}
		d, err := m.api.RootWorkItem(ctx, id)
		if err != nil {
			return pane{}, err
		}
		b.rootWorkItem(d)
	case nav.KindAgent:
		d, err := m.api.Agent(ctx, t.Key)
		if err != nil {
			return pane{}, err
		}
		b.agent(t.Key, d)
	case nav.KindAnnouncement:
		id, err := strconv.ParseInt(t.Key, 10, 64)
		if err != nil {
			return pane{}, fmt.Errorf("invalid announcement id %q", t.Key)
		}
		d, err := m.api.Announcement(ctx, id)
		if err != nil {
			return pane{}, err
		}
		b.announcement(d)
	case nav.KindFile:
		f, err := m.api.File(ctx, t.Key)
		if err != nil {
			return pane{}, err
		}
		b.file(f)
	default:
		return pane{}, fmt.Errorf("cannot open %s", t.Kind)
	}
	return b.pane, nil
}

type paneBuilder struct {
	pane      pane
	annotator *annotate.Annotator
}

func (b *paneBuilder) line(s string) {
	b.pane.lines = append(b.pane.lines, s)
}

func (b *paneBuilder) field(name, value string) {
	b.line(labelStyle.Render(fmt.Sprintf("%-14s", name)) + value)
}

func (b *paneBuilder) heading(s string) {
	b.line("")
	b.line(headingStyle.Render(s))
}

func (b *paneBuilder) link(label string, t nav.Target) {
	b.pane.items = append(b.pane.items, item{label: label, target: t})
}

// text lays out free text with its references highlighted, and makes
// every reference selectable.
func (b *paneBuilder) text(name, s string) {
	if s == "" {
		return
	}
	b.heading(name)
	var out strings.Builder
	for _, seg := range b.annotator.Parse(s) {
		switch seg.Kind {
		case annotate.Link:
			out.WriteString(linkStyle.Render(seg.Text))
			b.pane.items = append(b.pane.items, item{label: seg.Text, href: seg.Href,
				target: nav.Target{Kind: nav.KindURL, Key: seg.Href}})
		case annotate.Path:
			out.WriteString(pathStyle.Render(seg.Text))
			b.link(seg.Text, nav.Target{Kind: nav.KindFile, Key: seg.Text})
		default:
			out.WriteString(seg.Text)
		}
	}
	for _, l := range strings.Split(out.String(), "\n") {
		b.line(l)
	}
}

func (b *paneBuilder) tasks(name string, tasks []model.Task) {
	b.heading(fmt.Sprintf("%s (%d)", name, len(tasks)))
	if len(tasks) == 0 {
		b.line(dimStyle.Render("none"))
		return
	}
	for _, t := range tasks {
		b.link(taskLabel(t), nav.Target{Kind: nav.KindTask, Key: itoa(t.ID)})
	}
}

func (b *paneBuilder) queue(d *model.QueueDetail) {
	b.field("Queue", d.Queue.Name)
	b.text("Description", deref(d.Queue.Description))
	b.tasks("Tasks", d.Tasks)
}

func (b *paneBuilder) task(d *model.TaskDetail) {
	t := d.Task
	b.field("Title", t.Title)
	b.field("Status", statusStyle(string(t.Status)).Render(string(t.Status)))
	b.field("Priority", strconv.Itoa(t.Priority))
	b.field("Created", when(t.CreatedAt))
	if t.CompletedAt != nil {
		b.field("Completed", when(t.CompletedAt))
	}
	if t.ClaimedBy != nil {
		b.field("Claimed by", *t.ClaimedBy+" at "+when(t.ClaimedAt))
		b.link("Agent: "+*t.ClaimedBy, nav.Target{Kind: nav.KindAgent, Key: *t.ClaimedBy})
	}
	if d.ParentTask != nil {
		b.link("Parent: "+taskLabel(*d.ParentTask), nav.Target{Kind: nav.KindTask, Key: itoa(d.ParentTask.ID)})
	}
	if d.RootWorkItem != nil {
		b.link(fmt.Sprintf("Root work item: #%d %s", d.RootWorkItem.ID, d.RootWorkItem.Title),
			nav.Target{Kind: nav.KindRootWorkItem, Key: itoa(d.RootWorkItem.ID)})
	}
	b.text("Description", deref(t.Description))
	b.text("Result", deref(t.Result))
	b.text("Error", deref(t.Error))
	b.tasks("Child tasks", d.ChildTasks)
}

func (b *paneBuilder) rootWorkItem(d *model.RootWorkItemDetail) {
	w := d.RootWorkItem
	b.field("Title", w.Title)
	b.field("Status", statusStyle(string(w.Status)).Render(string(w.Status)))
	b.field("Created", when(w.CreatedAt))
	if w.StartedAt != nil {
		b.field("Started", when(w.StartedAt))
	}
	if w.CompletedAt != nil {
		b.field("Completed", when(w.CompletedAt))
	}
	if w.FailedAt != nil {
		b.field("Failed", when(w.FailedAt))
	}
	b.tasks("Tasks", d.Tasks)
}

func (b *paneBuilder) agent(name string, d *model.AgentDetail) {
	b.heading(fmt.Sprintf("Instances of %s (%d)", name, len(d.Agents)))
	if len(d.Agents) == 0 {
		b.line(dimStyle.Render("none"))
	}
	for _, a := range d.Agents {
		id := a.Name
		if a.InstanceID != nil {
			id = *a.InstanceID
		}
		pid := "-"
		if a.PID != nil {
			pid = strconv.FormatInt(*a.PID, 10)
		}
		b.line(fmt.Sprintf("%-24s pid %-8s %s  heartbeat %s", id, pid,
			statusStyle(string(a.Status)).Render(string(a.Status)), when(a.LastHeartbeat)))
	}
	b.tasks("Active tasks", d.ActiveTasks)
}

func (b *paneBuilder) announcement(d *model.AnnouncementDetail) {
	a := d.Announcement
	b.field("Type", string(a.Type))
	b.field("Posted", when(a.CreatedAt))
	if a.AgentName != nil {
		b.field("From", *a.AgentName)
		b.link("Agent: "+*a.AgentName, nav.Target{Kind: nav.KindAgent, Key: *a.AgentName})
	}
	if d.RelatedTask != nil {
		b.link("Related: "+taskLabel(*d.RelatedTask), nav.Target{Kind: nav.KindTask, Key: itoa(d.RelatedTask.ID)})
	}
	b.text("Message", a.Message)
	b.text("Context", deref(a.Context))
}

func (b *paneBuilder) file(f *model.FileView) {
	b.field("Path", f.Path)
	b.line("")
	for _, l := range strings.Split(f.Content, "\n") {
		b.line(l)
	}
}

func taskLabel(t model.Task) string {
	s := fmt.Sprintf("#%d [%s] %s", t.ID, t.Status, t.Title)
	if t.Queue != nil {
		s += " (" + *t.Queue + ")"
	}
	return s
}

func when(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= truncateAt {
		return s
	}
	return string(r[:truncateAt-3]) + "..."
}
