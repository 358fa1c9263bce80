package dashboard_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logyard/queuedash/internal/model"
	"github.com/logyard/queuedash/internal/service/dashboard"
	"github.com/logyard/queuedash/internal/storage"
	"github.com/logyard/queuedash/internal/testutil"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, st dashboard.Store) *dashboard.Service {
	t.Helper()
	return dashboard.New(st, dashboard.Options{Now: func() time.Time { return now }}, testutil.TestLogger())
}

func TestQueueSummaryPipelineOrder(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	for _, name := range []string{"zz-custom", "deploy", "announce", "requirements-research", "execution", "aa-custom"} {
		st.Queue(name)
	}
	exec, err := newService(t, st.Open(t)).ResolveQueueSummary(context.Background())
	require.NoError(t, err)

	var names []string
	for _, q := range exec {
		names = append(names, q.Name)
	}
	assert.Equal(t, []string{"requirements-research", "execution", "deploy", "announce", "aa-custom", "zz-custom"}, names)
	assert.Equal(t, "⚙️ Execution", exec[1].Label)
	assert.Equal(t, "aa-custom", exec[4].Label)
}

func TestQueueDetail(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	q := st.Queue("execution")
	low := st.Task(testutil.Task{Title: "low", Priority: 5})
	high := st.Task(testutil.Task{Title: "high", Priority: 10})
	st.Place(q, low, "queued", now.Add(-time.Hour))
	st.Place(q, high, "queued", now)

	svc := newService(t, st.Open(t))
	detail, err := svc.ResolveQueueDetail(context.Background(), "execution")
	require.NoError(t, err)
	assert.Equal(t, "execution", detail.Queue.Name)
	require.Len(t, detail.Tasks, 2)
	assert.Equal(t, 10, detail.Tasks[0].Priority)
	assert.Equal(t, 5, detail.Tasks[1].Priority)

	_, err = svc.ResolveQueueDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskDetail(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	root := st.WorkItem(testutil.WorkItem{Title: "feature", Status: "planning", CreatedAt: now.Add(-time.Hour)})
	parent := st.Task(testutil.Task{Title: "parent", RootID: root})
	task := st.Task(testutil.Task{Title: "task", ParentID: parent, RootID: root})
	child := st.Task(testutil.Task{Title: "child", ParentID: task})

	svc := newService(t, st.Open(t))
	first, err := svc.ResolveTaskDetail(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, first.ParentTask)
	assert.Equal(t, parent, first.ParentTask.ID)
	require.NotNil(t, first.RootWorkItem)
	assert.Equal(t, root, first.RootWorkItem.ID)
	require.Len(t, first.ChildTasks, 1)
	assert.Equal(t, child, first.ChildTasks[0].ID)

	second, err := svc.ResolveTaskDetail(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, first, second, "task detail is idempotent")

	leaf, err := svc.ResolveTaskDetail(context.Background(), child)
	require.NoError(t, err)
	assert.Nil(t, leaf.RootWorkItem)
	assert.NotNil(t, leaf.ChildTasks)
	assert.Empty(t, leaf.ChildTasks)

	_, err = svc.ResolveTaskDetail(context.Background(), 424242)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var verr *dashboard.ValidationError
	_, err = svc.ResolveTaskDetail(context.Background(), 0)
	assert.ErrorAs(t, err, &verr)
}

func TestTaskDetailDanglingParent(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	task := st.Task(testutil.Task{Title: "orphan"})
	st.Exec(`UPDATE tasks SET parent_task_id = 999 WHERE id = ?`, task)

	detail, err := newService(t, st.Open(t)).ResolveTaskDetail(context.Background(), task)
	require.NoError(t, err)
	assert.Nil(t, detail.ParentTask)
}

func TestRootWorkItemDetail(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	q := st.Queue("planning")
	root := st.WorkItem(testutil.WorkItem{Title: "feature", Status: "planning"})
	task := st.Task(testutil.Task{Title: "plan", RootID: root})
	st.Place(q, task, "in_progress", now)

	svc := newService(t, st.Open(t))
	detail, err := svc.ResolveRootWorkItemDetail(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, detail.Tasks, 1)
	require.NotNil(t, detail.Tasks[0].Queue)
	assert.Equal(t, "planning", *detail.Tasks[0].Queue)

	_, err = svc.ResolveRootWorkItemDetail(context.Background(), root+1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAgentDetailUnknownName(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	detail, err := newService(t, st.Open(t)).ResolveAgentDetail(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, detail.Agents)
	assert.NotNil(t, detail.ActiveTasks)
	assert.Empty(t, detail.Agents)
	assert.Empty(t, detail.ActiveTasks)
}

func TestAnnouncementDetail(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	task := st.Task(testutil.Task{Title: "t"})
	withTask := st.Announcement(testutil.Announcement{Type: "error", Message: "boom", TaskID: task})
	bare := st.Announcement(testutil.Announcement{Type: "question", Message: "?"})

	svc := newService(t, st.Open(t))
	d, err := svc.ResolveAnnouncementDetail(context.Background(), withTask)
	require.NoError(t, err)
	require.NotNil(t, d.RelatedTask)
	assert.Equal(t, task, d.RelatedTask.ID)

	d, err = svc.ResolveAnnouncementDetail(context.Background(), bare)
	require.NoError(t, err)
	assert.Nil(t, d.RelatedTask)
}

func TestStatusSummary(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	q := st.Queue("execution")
	st.Place(q, st.Task(testutil.Task{Title: "a"}), "queued", now)
	st.WorkItem(testutil.WorkItem{Title: "live", Status: "executing", CreatedAt: now.Add(-time.Hour)})
	st.Agent(testutil.Agent{Name: "execution", Status: "working", LastHeartbeat: now.Add(-45 * time.Minute)})
	st.Agent(testutil.Agent{Name: "execution", Status: "idle", LastHeartbeat: now.Add(-time.Minute)})
	st.Agent(testutil.Agent{Name: "scout", Status: "working", LastHeartbeat: now})
	for i := range 7 {
		st.Announcement(testutil.Announcement{Type: "work-taken", Message: fmt.Sprint(i), CreatedAt: now.Add(time.Duration(i) * time.Second)})
	}

	sum, err := newService(t, st.Open(t)).ResolveStatusSummary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Errors)
	assert.Equal(t, now, sum.Timestamp)

	require.Len(t, sum.Queues, 1)
	assert.Equal(t, 1, sum.Queues[0].Queued)
	require.Len(t, sum.RootWorkItems, 1)
	assert.Len(t, sum.Announcements, 5)
	assert.Equal(t, "6", sum.Announcements[0].Message)

	// Seven catalog workers, then names the catalog does not know.
	require.Len(t, sum.Agents, 8)
	assert.Equal(t, "requirements-research", sum.Agents[0].Name)
	assert.Equal(t, "agent-requirements-research.sh", sum.Agents[0].Script)
	assert.Zero(t, sum.Agents[0].Total)

	exec := sum.Agents[2]
	assert.Equal(t, "execution", exec.Name)
	assert.Equal(t, 2, exec.Total)
	assert.Equal(t, 0, exec.Working, "stale heartbeat must not count as working")
	assert.Equal(t, 1, exec.Idle)

	assert.Equal(t, "scout", sum.Agents[7].Name)
	assert.Empty(t, sum.Agents[7].Script)
	assert.Equal(t, 1, sum.Agents[7].Working)
}

func TestStatusSummaryUnavailable(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	db := st.Open(t)
	svc := newService(t, &unavailableStore{failingStore{Store: db}})

	_, err := svc.ResolveStatusSummary(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestDetailResolversCheckStoreFirst(t *testing.T) {
	// No store behind the ping: any query would panic.
	svc := newService(t, &unavailableStore{})
	ctx := context.Background()

	resolvers := map[string]func() error{
		"queue":        func() error { _, err := svc.ResolveQueueDetail(ctx, "execution"); return err },
		"task":         func() error { _, err := svc.ResolveTaskDetail(ctx, 1); return err },
		"work item":    func() error { _, err := svc.ResolveRootWorkItemDetail(ctx, 1); return err },
		"agent":        func() error { _, err := svc.ResolveAgentDetail(ctx, "execution"); return err },
		"announcement": func() error { _, err := svc.ResolveAnnouncementDetail(ctx, 1); return err },
	}
	for name, resolve := range resolvers {
		t.Run(name, func(t *testing.T) {
			err := resolve()
			assert.ErrorIs(t, err, storage.ErrUnavailable)
			assert.NotErrorIs(t, err, storage.ErrNotFound)
		})
	}

	_, err := svc.ResolveTaskDetail(ctx, 0)
	var verr *dashboard.ValidationError
	assert.ErrorAs(t, err, &verr, "validation runs before the store is touched")
}

func TestStatusSummarySectionFailure(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	st.Queue("execution")
	st.Announcement(testutil.Announcement{Type: "error", Message: "x"})
	fs := &failingStore{Store: st.Open(t), failAgents: errors.New("agents table locked")}

	sum, err := newService(t, fs).ResolveStatusSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{model.SectionAgents: "dashboard: agent rollups: agents table locked"}, sum.Errors)
	assert.NotNil(t, sum.Agents)
	assert.Empty(t, sum.Agents)
	assert.Len(t, sum.Queues, 1)
	assert.Len(t, sum.Announcements, 1)
}

func TestStatusSummaryCoalescesConcurrentCalls(t *testing.T) {
	st := testutil.NewSQLiteStore(t)
	release := make(chan struct{})
	gs := &gatedStore{Store: st.Open(t), gate: release}
	svc := newService(t, gs)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ResolveStatusSummary(context.Background())
			assert.NoError(t, err)
		}()
	}
	// Let every caller reach the shared flight before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), gs.pings.Load())
}

type failingStore struct {
	dashboard.Store
	failAgents error
}

func (f *failingStore) ListAgentRollups(ctx context.Context, since time.Time) ([]model.AgentRollup, error) {
	if f.failAgents != nil {
		return nil, f.failAgents
	}
	return f.Store.ListAgentRollups(ctx, since)
}

type unavailableStore struct {
	failingStore
}

func (unavailableStore) Ping(context.Context) error {
	return fmt.Errorf("%w: database file missing", storage.ErrUnavailable)
}

type gatedStore struct {
	dashboard.Store
	gate  chan struct{}
	pings atomic.Int32
}

func (g *gatedStore) Ping(ctx context.Context) error {
	g.pings.Add(1)
	<-g.gate
	return g.Store.Ping(ctx)
}
