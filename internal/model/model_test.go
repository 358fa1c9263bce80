package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logyard/queuedash/internal/model"
)

func TestWorkItemStatusRank(t *testing.T) {
	ranked := model.RankedWorkItemStatuses()
	require.Len(t, ranked, 10)
	assert.Equal(t, model.WorkItemExecuting, ranked[0])
	assert.Equal(t, model.WorkItemFailed, ranked[len(ranked)-1])
	for i, s := range ranked {
		assert.Equal(t, i+1, s.Rank(), "status %s", s)
	}
	assert.Equal(t, 11, model.WorkItemCancelled.Rank())
	assert.Equal(t, 11, model.WorkItemStatus("archived").Rank())
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.True(t, model.TaskCompleted.Terminal())
	assert.True(t, model.TaskFailed.Terminal())
	assert.True(t, model.TaskCancelled.Terminal())
	assert.False(t, model.TaskPending.Terminal())
	assert.False(t, model.TaskInProgress.Terminal())
}

func TestPlacementActive(t *testing.T) {
	assert.True(t, model.PlacementQueued.Active())
	assert.True(t, model.PlacementInProgress.Active())
	assert.False(t, model.PlacementCompleted.Active())
}

func TestValidateRootWorkItem(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	started := created.Add(time.Minute)
	done := started.Add(time.Hour)

	require.NoError(t, model.ValidateRootWorkItem(model.RootWorkItem{ID: 1, CreatedAt: &created}))
	require.NoError(t, model.ValidateRootWorkItem(model.RootWorkItem{
		ID: 1, CreatedAt: &created, StartedAt: &started, CompletedAt: &done,
	}))
	// Never started but completed: measured from creation.
	require.NoError(t, model.ValidateRootWorkItem(model.RootWorkItem{ID: 1, CreatedAt: &created, FailedAt: &done}))

	assert.Error(t, model.ValidateRootWorkItem(model.RootWorkItem{ID: 0}))
	assert.Error(t, model.ValidateRootWorkItem(model.RootWorkItem{ID: 1, CreatedAt: &started, StartedAt: &created}))
	assert.Error(t, model.ValidateRootWorkItem(model.RootWorkItem{
		ID: 1, CreatedAt: &created, StartedAt: &done, CompletedAt: &started,
	}))
	assert.Error(t, model.ValidateRootWorkItem(model.RootWorkItem{ID: 1, CreatedAt: &done, FailedAt: &created}))
}

func TestValidateTask(t *testing.T) {
	self := int64(4)
	require.NoError(t, model.ValidateTask(model.Task{ID: 4, Status: model.TaskPending}))
	assert.Error(t, model.ValidateTask(model.Task{ID: 0, Status: model.TaskPending}))
	assert.Error(t, model.ValidateTask(model.Task{ID: 4}))
	assert.Error(t, model.ValidateTask(model.Task{ID: 4, Status: model.TaskPending, ParentTaskID: &self}))
}

func TestValidateIdentity(t *testing.T) {
	assert.Error(t, model.ValidateQueue(model.Queue{ID: 1}))
	assert.NoError(t, model.ValidateQueue(model.Queue{ID: 1, Name: "execution"}))
	assert.Error(t, model.ValidateAgent(model.Agent{ID: 1}))
	assert.NoError(t, model.ValidateAgent(model.Agent{ID: 1, Name: "execution"}))
	assert.Error(t, model.ValidateAnnouncement(model.Announcement{}))
	assert.NoError(t, model.ValidateAnnouncement(model.Announcement{ID: 3}))
}
