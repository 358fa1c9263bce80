package model

import (
	"fmt"
	"time"
)

// AnnouncementType classifies a broadcast message.
type AnnouncementType string

const (
	AnnouncementError         AnnouncementType = "error"
	AnnouncementWorkCompleted AnnouncementType = "work-completed"
	AnnouncementWorkTaken     AnnouncementType = "work-taken"
	AnnouncementQuestion      AnnouncementType = "question"
)

// Announcement is a message a worker broadcast to operators.
type Announcement struct {
	ID        int64            `json:"id"`
	Type      AnnouncementType `json:"type"`
	AgentName *string          `json:"agent_name"`
	Message   string           `json:"message"`
	Context   *string          `json:"context"`
	TaskID    *int64           `json:"task_id"`
	CreatedAt *time.Time       `json:"created_at"`
}

// ValidateAnnouncement rejects announcement rows without an identity.
func ValidateAnnouncement(a Announcement) error {
	if a.ID <= 0 {
		return fmt.Errorf("announcement: invalid id %d", a.ID)
	}
	return nil
}
