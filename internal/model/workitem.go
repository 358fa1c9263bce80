package model

import (
	"fmt"
	"time"
)

// WorkItemStatus is the pipeline phase of a root work item.
type WorkItemStatus string

const (
	WorkItemPending     WorkItemStatus = "pending"
	WorkItemResearching WorkItemStatus = "researching"
	WorkItemPlanning    WorkItemStatus = "planning"
	WorkItemExecuting   WorkItemStatus = "executing"
	WorkItemChecking    WorkItemStatus = "checking"
	WorkItemBuilding    WorkItemStatus = "building"
	WorkItemDeploying   WorkItemStatus = "deploying"
	WorkItemTesting     WorkItemStatus = "testing"
	WorkItemCompleted   WorkItemStatus = "completed"
	WorkItemFailed      WorkItemStatus = "failed"
	WorkItemCancelled   WorkItemStatus = "cancelled"
)

// workItemRanks orders root work items on the dashboard: the phases closest
// to shipping come first, finished items last.
var workItemRanks = map[WorkItemStatus]int{
	WorkItemExecuting:   1,
	WorkItemChecking:    2,
	WorkItemBuilding:    3,
	WorkItemDeploying:   4,
	WorkItemTesting:     5,
	WorkItemPlanning:    6,
	WorkItemResearching: 7,
	WorkItemPending:     8,
	WorkItemCompleted:   9,
	WorkItemFailed:      10,
}

// Rank returns the display rank of the status. Unknown statuses sort last.
func (s WorkItemStatus) Rank() int {
	if r, ok := workItemRanks[s]; ok {
		return r
	}
	return len(workItemRanks) + 1
}

// RankedWorkItemStatuses returns the known statuses in rank order.
func RankedWorkItemStatuses() []WorkItemStatus {
	out := make([]WorkItemStatus, len(workItemRanks))
	for s, r := range workItemRanks {
		out[r-1] = s
	}
	return out
}

// RootWorkItem is a top-level unit of work that the pipeline breaks into tasks.
type RootWorkItem struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Status      WorkItemStatus `json:"status"`
	CreatedAt   *time.Time     `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	FailedAt    *time.Time     `json:"failed_at"`
}

// ValidateRootWorkItem rejects rows without an identity and rows whose
// timestamps run backwards (created <= started <= completed/failed).
func ValidateRootWorkItem(w RootWorkItem) error {
	if w.ID <= 0 {
		return fmt.Errorf("root work item: invalid id %d", w.ID)
	}
	if before(w.StartedAt, w.CreatedAt) {
		return fmt.Errorf("root work item %d: started before created", w.ID)
	}
	start := w.StartedAt
	if start == nil {
		start = w.CreatedAt
	}
	if before(w.CompletedAt, start) {
		return fmt.Errorf("root work item %d: completed before started", w.ID)
	}
	if before(w.FailedAt, start) {
		return fmt.Errorf("root work item %d: failed before started", w.ID)
	}
	return nil
}

func before(a, b *time.Time) bool {
	return a != nil && b != nil && a.Before(*b)
}
