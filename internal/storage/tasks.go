package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/logyard/queuedash/internal/model"
)

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.claimed_by, t.claimed_at,
	t.completed_at, t.result, t.error, t.parent_task_id, t.root_work_item_id, t.created_at`

func scanTaskInto(row rowScanner, extra ...any) (model.Task, error) {
	var (
		t                      model.Task
		title, status          sql.NullString
		desc, claimedBy        sql.NullString
		result, errText        sql.NullString
		priority, parent, root sql.NullInt64
		claimedAt, completedAt nullTime
		createdAt              nullTime
	)
	dest := []any{
		&t.ID, &title, &desc, &status, &priority, &claimedBy, &claimedAt,
		&completedAt, &result, &errText, &parent, &root, &createdAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Task{}, err
	}
	t.Title = title.String
	t.Description = stringPtr(desc)
	t.Status = model.TaskStatus(status.String)
	t.Priority = int(priority.Int64)
	t.ClaimedBy = stringPtr(claimedBy)
	t.ClaimedAt = claimedAt.ptr()
	t.CompletedAt = completedAt.ptr()
	t.Result = stringPtr(result)
	t.Error = stringPtr(errText)
	t.ParentTaskID = int64Ptr(parent)
	t.RootWorkItemID = int64Ptr(root)
	t.CreatedAt = createdAt.ptr()
	return t, nil
}

func scanTask(row rowScanner) (model.Task, error) {
	return scanTaskInto(row)
}

// GetTask returns a task by id.
func (db *DB) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var t model.Task
	err := WithRetry(ctx, 3, retryDelay, func() error {
		var err error
		t, err = scanTask(db.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id))
		return err
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: get task %d: %w", id, rowErr(err))
	}
	if err := model.ValidateTask(t); err != nil {
		return model.Task{}, fmt.Errorf("storage: get task %d: %w", id, invalidRow(err))
	}
	return t, nil
}

// ListChildTasks returns the direct subtasks of a task, oldest first.
func (db *DB) ListChildTasks(ctx context.Context, parentID int64) ([]model.Task, error) {
	rows, err := db.query(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.parent_task_id = ? ORDER BY t.created_at ASC, t.id ASC`,
		parentID)
	if err != nil {
		return nil, fmt.Errorf("storage: list child tasks of %d: %w", parentID, err)
	}
	tasks, err := collect(db, rows, "task", scanTask, model.ValidateTask)
	if err != nil {
		return nil, fmt.Errorf("storage: list child tasks of %d: %w", parentID, err)
	}
	return tasks, nil
}

// ListQueueTasks returns the tasks actively placed in a queue (queued or in
// progress), highest priority first, then in placement order.
func (db *DB) ListQueueTasks(ctx context.Context, queueID int64) ([]model.Task, error) {
	rows, err := db.query(ctx,
		`SELECT `+taskColumns+`, qt.status
		 FROM queue_tasks qt
		 JOIN tasks t ON t.id = qt.task_id
		 WHERE qt.queue_id = ? AND qt.status IN ('queued', 'in_progress')
		 ORDER BY t.priority DESC, qt.created_at ASC, qt.id ASC`,
		queueID)
	if err != nil {
		return nil, fmt.Errorf("storage: list queue tasks: %w", err)
	}
	tasks, err := collect(db, rows, "task", func(r rowScanner) (model.Task, error) {
		var placement sql.NullString
		t, err := scanTaskInto(r, &placement)
		if err != nil {
			return t, err
		}
		if placement.Valid {
			p := model.QueueTaskStatus(placement.String)
			t.Placement = &p
		}
		return t, nil
	}, model.ValidateTask)
	if err != nil {
		return nil, fmt.Errorf("storage: list queue tasks: %w", err)
	}
	return tasks, nil
}

// ListRootWorkItemTasks returns every task of a root work item. Each task
// carries the name of the queue holding its most recent active placement,
// or nil when it is not queued anywhere.
func (db *DB) ListRootWorkItemTasks(ctx context.Context, rootID int64) ([]model.Task, error) {
	rows, err := db.query(ctx,
		`SELECT `+taskColumns+`,
		 (SELECT q.name FROM queue_tasks qt
		  JOIN queues q ON q.id = qt.queue_id
		  WHERE qt.task_id = t.id AND qt.status IN ('queued', 'in_progress')
		  ORDER BY qt.created_at DESC, qt.id DESC
		  LIMIT 1) AS queue_name
		 FROM tasks t
		 WHERE t.root_work_item_id = ?
		 ORDER BY t.created_at ASC, t.id ASC`,
		rootID)
	if err != nil {
		return nil, fmt.Errorf("storage: list root work item tasks: %w", err)
	}
	tasks, err := collect(db, rows, "task", func(r rowScanner) (model.Task, error) {
		var queue sql.NullString
		t, err := scanTaskInto(r, &queue)
		t.Queue = stringPtr(queue)
		return t, err
	}, model.ValidateTask)
	if err != nil {
		return nil, fmt.Errorf("storage: list root work item tasks: %w", err)
	}
	return tasks, nil
}

// ListClaimedTasks returns the unfinished tasks claimed by a worker type,
// matching either the type name or the instance id of any of its rows.
func (db *DB) ListClaimedTasks(ctx context.Context, agentName string) ([]model.Task, error) {
	rows, err := db.query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 WHERE (t.claimed_by = ?
		        OR t.claimed_by IN (SELECT a.instance_id FROM agents a WHERE a.name = ? AND a.instance_id IS NOT NULL))
		   AND t.status NOT IN ('completed', 'failed', 'cancelled')
		 ORDER BY t.priority DESC, t.created_at ASC, t.id ASC`,
		agentName, agentName)
	if err != nil {
		return nil, fmt.Errorf("storage: list claimed tasks: %w", err)
	}
	tasks, err := collect(db, rows, "task", scanTask, model.ValidateTask)
	if err != nil {
		return nil, fmt.Errorf("storage: list claimed tasks: %w", err)
	}
	return tasks, nil
}
