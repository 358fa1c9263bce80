package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logyard/queuedash/internal/model"
	"github.com/logyard/queuedash/internal/storage"
	"github.com/logyard/queuedash/internal/testutil"
)

// runStoreSuite exercises every read query against a fresh fixture per
// subtest. It runs on SQLite always and on Postgres with -tags integration.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) *testutil.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("queue counts", func(t *testing.T) {
		st := newStore(t)
		exec := st.Queue("execution")
		st.Queue("planning")

		for i := range 2 {
			st.Place(exec, st.Task(testutil.Task{Title: "q"}), "queued", now.Add(time.Duration(-i)*time.Minute))
		}
		st.Place(exec, st.Task(testutil.Task{Title: "r"}), "in_progress", now)
		st.Place(exec, st.Task(testutil.Task{Title: "done"}), "completed", now.Add(-10*time.Minute))
		st.Place(exec, st.Task(testutil.Task{Title: "old"}), "completed", now.Add(-2*time.Hour))

		counts, err := st.Open(t).ListQueueCounts(ctx, now.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, counts, 2)

		byName := map[string]model.QueueSummary{}
		for _, c := range counts {
			byName[c.Name] = c
		}
		assert.Equal(t, 2, byName["execution"].Queued)
		assert.Equal(t, 1, byName["execution"].InProgress)
		assert.Equal(t, 1, byName["execution"].DoneLastHour)
		assert.Equal(t, "Queue for execution", byName["execution"].Description)
		assert.Zero(t, byName["planning"].Queued)
		assert.Zero(t, byName["planning"].DoneLastHour)

		for _, c := range counts {
			active := st.Count(`SELECT COUNT(*) FROM queue_tasks qt JOIN queues q ON q.id = qt.queue_id
				WHERE q.name = ? AND qt.status IN ('queued', 'in_progress')`, c.Name)
			assert.Equal(t, active, c.Queued+c.InProgress, "queue %s", c.Name)
		}
	})

	t.Run("queue tasks ordered by priority then placement", func(t *testing.T) {
		st := newStore(t)
		exec := st.Queue("execution")
		low := st.Task(testutil.Task{Title: "low", Priority: 5})
		high := st.Task(testutil.Task{Title: "high", Priority: 10})
		firstTie := st.Task(testutil.Task{Title: "tie-a", Priority: 1})
		secondTie := st.Task(testutil.Task{Title: "tie-b", Priority: 1})
		done := st.Task(testutil.Task{Title: "done", Priority: 99})

		st.Place(exec, low, "queued", now.Add(-5*time.Minute))
		st.Place(exec, high, "in_progress", now.Add(-time.Minute))
		st.Place(exec, secondTie, "queued", now.Add(-2*time.Minute))
		st.Place(exec, firstTie, "queued", now.Add(-3*time.Minute))
		st.Place(exec, done, "completed", now)

		db := st.Open(t)
		q, err := db.GetQueueByName(ctx, "execution")
		require.NoError(t, err)
		tasks, err := db.ListQueueTasks(ctx, q.ID)
		require.NoError(t, err)

		require.Len(t, tasks, 4)
		assert.Equal(t, []int64{high, low, firstTie, secondTie}, taskIDs(tasks))
		assert.Equal(t, []int{10, 5, 1, 1}, []int{tasks[0].Priority, tasks[1].Priority, tasks[2].Priority, tasks[3].Priority})
		require.NotNil(t, tasks[0].Placement)
		assert.Equal(t, model.PlacementInProgress, *tasks[0].Placement)
	})

	t.Run("queue by name not found", func(t *testing.T) {
		st := newStore(t)
		_, err := st.Open(t).GetQueueByName(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("task lookup and children", func(t *testing.T) {
		st := newStore(t)
		root := st.WorkItem(testutil.WorkItem{Title: "ship it", Status: "executing", CreatedAt: now.Add(-time.Hour)})
		parent := st.Task(testutil.Task{Title: "parent", RootID: root, Description: "see docs/plan.md", CreatedAt: now.Add(-time.Hour)})
		second := st.Task(testutil.Task{Title: "second", ParentID: parent, CreatedAt: now.Add(-time.Minute)})
		first := st.Task(testutil.Task{Title: "first", ParentID: parent, CreatedAt: now.Add(-2 * time.Minute)})

		db := st.Open(t)
		task, err := db.GetTask(ctx, parent)
		require.NoError(t, err)
		assert.Equal(t, "parent", task.Title)
		require.NotNil(t, task.Description)
		assert.Equal(t, "see docs/plan.md", *task.Description)
		require.NotNil(t, task.RootWorkItemID)
		assert.Equal(t, root, *task.RootWorkItemID)
		assert.Nil(t, task.ParentTaskID)
		require.NotNil(t, task.CreatedAt)
		assert.WithinDuration(t, now.Add(-time.Hour), *task.CreatedAt, time.Second)

		children, err := db.ListChildTasks(ctx, parent)
		require.NoError(t, err)
		assert.Equal(t, []int64{first, second}, taskIDs(children))

		none, err := db.ListChildTasks(ctx, first)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		_, err = db.GetTask(ctx, 9999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("root work item tasks carry current queue", func(t *testing.T) {
		st := newStore(t)
		planning := st.Queue("planning")
		exec := st.Queue("execution")
		root := st.WorkItem(testutil.WorkItem{Title: "feature", Status: "executing"})

		moved := st.Task(testutil.Task{Title: "moved", RootID: root, CreatedAt: now.Add(-3 * time.Minute)})
		st.Place(planning, moved, "completed", now.Add(-10*time.Minute))
		st.Place(exec, moved, "queued", now.Add(-5*time.Minute))
		idle := st.Task(testutil.Task{Title: "idle", RootID: root, CreatedAt: now.Add(-2 * time.Minute)})
		st.Place(planning, idle, "completed", now.Add(-5*time.Minute))
		st.Task(testutil.Task{Title: "other root"})

		tasks, err := st.Open(t).ListRootWorkItemTasks(ctx, root)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, []int64{moved, idle}, taskIDs(tasks))
		require.NotNil(t, tasks[0].Queue)
		assert.Equal(t, "execution", *tasks[0].Queue)
		assert.Nil(t, tasks[1].Queue)
	})

	t.Run("live root work items", func(t *testing.T) {
		st := newStore(t)
		pending := st.WorkItem(testutil.WorkItem{Title: "p", Status: "pending", CreatedAt: now.Add(-time.Hour)})
		execOld := st.WorkItem(testutil.WorkItem{Title: "e1", Status: "executing", CreatedAt: now.Add(-2 * time.Hour)})
		execNew := st.WorkItem(testutil.WorkItem{Title: "e2", Status: "executing", CreatedAt: now.Add(-time.Hour)})
		inTest := st.WorkItem(testutil.WorkItem{Title: "t", Status: "testing", CreatedAt: now.Add(-time.Hour)})
		doneRecent := st.WorkItem(testutil.WorkItem{Title: "c", Status: "completed",
			CreatedAt: now.Add(-3 * time.Hour), CompletedAt: now.Add(-10 * time.Minute)})
		st.WorkItem(testutil.WorkItem{Title: "c-old", Status: "completed",
			CreatedAt: now.Add(-5 * time.Hour), CompletedAt: now.Add(-3 * time.Hour)})
		failedRecent := st.WorkItem(testutil.WorkItem{Title: "f", Status: "failed",
			CreatedAt: now.Add(-3 * time.Hour), FailedAt: now.Add(-30 * time.Minute)})
		st.WorkItem(testutil.WorkItem{Title: "f-old", Status: "failed",
			CreatedAt: now.Add(-5 * time.Hour), FailedAt: now.Add(-2 * time.Hour)})
		st.WorkItem(testutil.WorkItem{Title: "x", Status: "cancelled", CreatedAt: now})
		odd := st.WorkItem(testutil.WorkItem{Title: "o", Status: "on-hold", CreatedAt: now})

		items, err := st.Open(t).ListLiveRootWorkItems(ctx, now.Add(-time.Hour))
		require.NoError(t, err)
		got := make([]int64, len(items))
		for i, w := range items {
			got[i] = w.ID
		}
		assert.Equal(t, []int64{execNew, execOld, inTest, pending, doneRecent, failedRecent, odd}, got)
	})

	t.Run("invalid rows skipped in lists", func(t *testing.T) {
		st := newStore(t)
		bad := st.WorkItem(testutil.WorkItem{Title: "backwards", Status: "executing",
			CreatedAt: now, StartedAt: now.Add(-time.Hour)})
		good := st.WorkItem(testutil.WorkItem{Title: "fine", Status: "executing", CreatedAt: now})

		db := st.Open(t)
		items, err := db.ListLiveRootWorkItems(ctx, now.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, good, items[0].ID)

		_, err = db.GetRootWorkItem(ctx, bad)
		assert.ErrorIs(t, err, storage.ErrQueryFailure)
	})

	t.Run("agents by name", func(t *testing.T) {
		st := newStore(t)
		never := st.Agent(testutil.Agent{Name: "execution", InstanceID: "exec-0"})
		older := st.Agent(testutil.Agent{Name: "execution", InstanceID: "exec-1", LastHeartbeat: now.Add(-20 * time.Minute)})
		fresh := st.Agent(testutil.Agent{Name: "execution", InstanceID: "exec-2", PID: 4242, Status: "working", LastHeartbeat: now})
		st.Agent(testutil.Agent{Name: "planning", LastHeartbeat: now})

		db := st.Open(t)
		agents, err := db.ListAgentsByName(ctx, "execution")
		require.NoError(t, err)
		require.Len(t, agents, 3)
		assert.Equal(t, []int64{fresh, older, never}, []int64{agents[0].ID, agents[1].ID, agents[2].ID})
		require.NotNil(t, agents[0].PID)
		assert.EqualValues(t, 4242, *agents[0].PID)
		assert.Nil(t, agents[2].LastHeartbeat)

		empty, err := db.ListAgentsByName(ctx, "ghost")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		pids, err := db.ListAgentPIDs(ctx, "execution")
		require.NoError(t, err)
		assert.Equal(t, []int{4242}, pids)
	})

	t.Run("agent rollups exclude stale heartbeats", func(t *testing.T) {
		st := newStore(t)
		st.Agent(testutil.Agent{Name: "execution", Status: "working", LastHeartbeat: now.Add(-45 * time.Minute)})
		st.Agent(testutil.Agent{Name: "execution", Status: "working", LastHeartbeat: now.Add(-time.Minute)})
		st.Agent(testutil.Agent{Name: "execution", Status: "idle", LastHeartbeat: now.Add(-2 * time.Minute)})
		st.Agent(testutil.Agent{Name: "execution", Status: "idle"})
		st.Agent(testutil.Agent{Name: "planning", Status: "idle", LastHeartbeat: now.Add(-time.Hour)})

		rollups, err := st.Open(t).ListAgentRollups(ctx, now.Add(-30*time.Minute))
		require.NoError(t, err)
		require.Len(t, rollups, 2)
		assert.Equal(t, model.AgentRollup{Name: "execution", Total: 4, Working: 1, Idle: 1}, rollups[0])
		assert.Equal(t, model.AgentRollup{Name: "planning", Total: 1}, rollups[1])
	})

	t.Run("claimed tasks match name or instance", func(t *testing.T) {
		st := newStore(t)
		st.Agent(testutil.Agent{Name: "execution", InstanceID: "exec-7"})
		byName := st.Task(testutil.Task{Title: "a", Status: "in_progress", ClaimedBy: "execution", Priority: 1})
		byInstance := st.Task(testutil.Task{Title: "b", Status: "in_progress", ClaimedBy: "exec-7", Priority: 3})
		st.Task(testutil.Task{Title: "c", Status: "completed", ClaimedBy: "exec-7"})
		st.Task(testutil.Task{Title: "d", Status: "cancelled", ClaimedBy: "execution"})
		st.Task(testutil.Task{Title: "e", Status: "in_progress", ClaimedBy: "planning"})

		tasks, err := st.Open(t).ListClaimedTasks(ctx, "execution")
		require.NoError(t, err)
		assert.Equal(t, []int64{byInstance, byName}, taskIDs(tasks))
	})

	t.Run("announcements", func(t *testing.T) {
		st := newStore(t)
		task := st.Task(testutil.Task{Title: "t"})
		var ids []int64
		for i := range 7 {
			ids = append(ids, st.Announcement(testutil.Announcement{
				Type: "work-completed", AgentName: "execution", Message: "done",
				TaskID: task, CreatedAt: now.Add(time.Duration(i) * time.Minute),
			}))
		}

		db := st.Open(t)
		recent, err := db.ListRecentAnnouncements(ctx, 5)
		require.NoError(t, err)
		require.Len(t, recent, 5)
		assert.Equal(t, ids[6], recent[0].ID)
		assert.Equal(t, ids[2], recent[4].ID)

		a, err := db.GetAnnouncement(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, model.AnnouncementWorkCompleted, a.Type)
		require.NotNil(t, a.TaskID)
		assert.Equal(t, task, *a.TaskID)

		_, err = db.GetAnnouncement(ctx, 12345)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func taskIDs(tasks []model.Task) []int64 {
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
