package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/logyard/queuedash/internal/model"
)

// GetQueueByName returns the queue with the given name.
func (db *DB) GetQueueByName(ctx context.Context, name string) (model.Queue, error) {
	var (
		q    model.Queue
		desc sql.NullString
	)
	err := WithRetry(ctx, 3, retryDelay, func() error {
		return db.queryRow(ctx, `SELECT id, name, description FROM queues WHERE name = ?`, name).
			Scan(&q.ID, &q.Name, &desc)
	})
	if err != nil {
		return model.Queue{}, fmt.Errorf("storage: get queue %q: %w", name, rowErr(err))
	}
	q.Description = stringPtr(desc)
	if err := model.ValidateQueue(q); err != nil {
		return model.Queue{}, fmt.Errorf("storage: get queue %q: %w", name, invalidRow(err))
	}
	return q, nil
}

// ListQueueCounts returns every queue with the number of queued and
// in-progress placements, and the placements completed at or after since.
// The rows are in name order; callers apply their own display order.
func (db *DB) ListQueueCounts(ctx context.Context, since time.Time) ([]model.QueueSummary, error) {
	rows, err := db.query(ctx,
		`SELECT q.id, q.name, q.description,
		   COALESCE(SUM(CASE WHEN qt.status = 'queued' THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN qt.status = 'in_progress' THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN qt.status = 'completed' AND `+db.dialect.since("qt.updated_at")+` THEN 1 ELSE 0 END), 0)
		 FROM queues q
		 LEFT JOIN queue_tasks qt ON qt.queue_id = q.id
		 GROUP BY q.id, q.name, q.description
		 ORDER BY q.name`,
		db.dialect.cutoff(since))
	if err != nil {
		return nil, fmt.Errorf("storage: list queue counts: %w", err)
	}
	out, err := collect(db, rows, "queue", func(r rowScanner) (model.QueueSummary, error) {
		var (
			id                    int64
			s                     model.QueueSummary
			desc                  sql.NullString
			queued, running, done int64
		)
		if err := r.Scan(&id, &s.Name, &desc, &queued, &running, &done); err != nil {
			return s, err
		}
		s.Description = desc.String
		s.Queued, s.InProgress, s.DoneLastHour = int(queued), int(running), int(done)
		return s, nil
	}, func(s model.QueueSummary) error {
		return model.ValidateQueue(model.Queue{ID: 1, Name: s.Name})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list queue counts: %w", err)
	}
	return out, nil
}
