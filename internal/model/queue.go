package model

import "fmt"

// Queue is a named stage of the processing pipeline.
type Queue struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// QueueTaskStatus is the status of a task's placement in a queue. It is
// independent of the task's own status.
type QueueTaskStatus string

const (
	PlacementQueued     QueueTaskStatus = "queued"
	PlacementInProgress QueueTaskStatus = "in_progress"
	PlacementCompleted  QueueTaskStatus = "completed"
)

// Active reports whether the placement still occupies its queue.
func (s QueueTaskStatus) Active() bool {
	return s == PlacementQueued || s == PlacementInProgress
}

// QueueSummary is one row of the dashboard's queue table.
type QueueSummary struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Description  string `json:"description"`
	Queued       int    `json:"queued"`
	InProgress   int    `json:"in_progress"`
	DoneLastHour int    `json:"done_last_hour"`
}

// ValidateQueue rejects queue rows without an identity.
func ValidateQueue(q Queue) error {
	if q.ID <= 0 {
		return fmt.Errorf("queue: invalid id %d", q.ID)
	}
	if q.Name == "" {
		return fmt.Errorf("queue %d: empty name", q.ID)
	}
	return nil
}
