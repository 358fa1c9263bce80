package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/logyard/queuedash/internal/model"
)

const workItemColumns = `id, title, status, created_at, started_at, completed_at, failed_at`

func scanWorkItem(row rowScanner) (model.RootWorkItem, error) {
	var (
		w                          model.RootWorkItem
		status                     string
		created, started, done, ko nullTime
	)
	if err := row.Scan(&w.ID, &w.Title, &status, &created, &started, &done, &ko); err != nil {
		return model.RootWorkItem{}, err
	}
	w.Status = model.WorkItemStatus(status)
	w.CreatedAt = created.ptr()
	w.StartedAt = started.ptr()
	w.CompletedAt = done.ptr()
	w.FailedAt = ko.ptr()
	return w, nil
}

// statusRankExpr builds the ORDER BY expression for root work item status.
func statusRankExpr() string {
	var b strings.Builder
	b.WriteString("CASE status")
	ranked := model.RankedWorkItemStatuses()
	for i, s := range ranked {
		b.WriteString(" WHEN '" + string(s) + "' THEN " + strconv.Itoa(i+1))
	}
	b.WriteString(" ELSE " + strconv.Itoa(len(ranked)+1) + " END")
	return b.String()
}

// GetRootWorkItem returns a root work item by id.
func (db *DB) GetRootWorkItem(ctx context.Context, id int64) (model.RootWorkItem, error) {
	var w model.RootWorkItem
	err := WithRetry(ctx, 3, retryDelay, func() error {
		var err error
		w, err = scanWorkItem(db.queryRow(ctx, `SELECT `+workItemColumns+` FROM root_work_items WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return model.RootWorkItem{}, fmt.Errorf("storage: get root work item %d: %w", id, rowErr(err))
	}
	if err := model.ValidateRootWorkItem(w); err != nil {
		return model.RootWorkItem{}, fmt.Errorf("storage: get root work item %d: %w", id, invalidRow(err))
	}
	return w, nil
}

// ListLiveRootWorkItems returns every unfinished root work item plus those
// that completed or failed at or after since, most urgent phase first and
// newest first within a phase.
func (db *DB) ListLiveRootWorkItems(ctx context.Context, since time.Time) ([]model.RootWorkItem, error) {
	cutoff := db.dialect.cutoff(since)
	rows, err := db.query(ctx,
		`SELECT `+workItemColumns+`
		 FROM root_work_items
		 WHERE status NOT IN ('completed', 'failed', 'cancelled')
		    OR (status = 'completed' AND `+db.dialect.since("completed_at")+`)
		    OR (status = 'failed' AND `+db.dialect.since("failed_at")+`)
		 ORDER BY `+statusRankExpr()+`, created_at DESC, id DESC`,
		cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("storage: list root work items: %w", err)
	}
	items, err := collect(db, rows, "root work item", scanWorkItem, model.ValidateRootWorkItem)
	if err != nil {
		return nil, fmt.Errorf("storage: list root work items: %w", err)
	}
	return items, nil
}
