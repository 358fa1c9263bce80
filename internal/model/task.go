package model

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle status of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether no further work happens on a task in this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// Task is a unit of work. A task may be placed in several queues over its
// life; Placement and Queue are filled only by lookups that join a placement.
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       int        `json:"priority"`
	ClaimedBy      *string    `json:"claimed_by"`
	ClaimedAt      *time.Time `json:"claimed_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	Result         *string    `json:"result"`
	Error          *string    `json:"error"`
	ParentTaskID   *int64     `json:"parent_task_id"`
	RootWorkItemID *int64     `json:"root_work_item_id"`
	CreatedAt      *time.Time `json:"created_at"`

	Placement *QueueTaskStatus `json:"queue_status,omitempty"`
	Queue     *string          `json:"queue,omitempty"`
}

// ValidateTask rejects task rows without an identity or with a self-referencing parent.
func ValidateTask(t Task) error {
	if t.ID <= 0 {
		return fmt.Errorf("task: invalid id %d", t.ID)
	}
	if t.Status == "" {
		return fmt.Errorf("task %d: empty status", t.ID)
	}
	if t.ParentTaskID != nil && *t.ParentTaskID == t.ID {
		return fmt.Errorf("task %d: parent is itself", t.ID)
	}
	return nil
}
