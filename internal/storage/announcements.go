package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/logyard/queuedash/internal/model"
)

const announcementColumns = `id, type, agent_name, message, context, task_id, created_at`

func scanAnnouncement(row rowScanner) (model.Announcement, error) {
	var (
		a                  model.Announcement
		typ, message       sql.NullString
		agentName, ctxText sql.NullString
		taskID             sql.NullInt64
		created            nullTime
	)
	if err := row.Scan(&a.ID, &typ, &agentName, &message, &ctxText, &taskID, &created); err != nil {
		return model.Announcement{}, err
	}
	a.Type = model.AnnouncementType(typ.String)
	a.AgentName = stringPtr(agentName)
	a.Message = message.String
	a.Context = stringPtr(ctxText)
	a.TaskID = int64Ptr(taskID)
	a.CreatedAt = created.ptr()
	return a, nil
}

// GetAnnouncement returns an announcement by id.
func (db *DB) GetAnnouncement(ctx context.Context, id int64) (model.Announcement, error) {
	var a model.Announcement
	err := WithRetry(ctx, 3, retryDelay, func() error {
		var err error
		a, err = scanAnnouncement(db.queryRow(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return model.Announcement{}, fmt.Errorf("storage: get announcement %d: %w", id, rowErr(err))
	}
	if err := model.ValidateAnnouncement(a); err != nil {
		return model.Announcement{}, fmt.Errorf("storage: get announcement %d: %w", id, invalidRow(err))
	}
	return a, nil
}

// ListRecentAnnouncements returns the newest announcements, at most limit.
func (db *DB) ListRecentAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	rows, err := db.query(ctx,
		`SELECT `+announcementColumns+` FROM announcements ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list announcements: %w", err)
	}
	out, err := collect(db, rows, "announcement", scanAnnouncement, model.ValidateAnnouncement)
	if err != nil {
		return nil, fmt.Errorf("storage: list announcements: %w", err)
	}
	return out, nil
}
