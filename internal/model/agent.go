package model

import (
	"fmt"
	"time"
)

// AgentStatus is the self-reported state of a worker process.
type AgentStatus string

const (
	AgentWorking AgentStatus = "working"
	AgentIdle    AgentStatus = "idle"
)

// Agent is one running (or once-running) worker process. Several rows may
// share a Name, one per instance.
type Agent struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	InstanceID    *string     `json:"instance_id"`
	PID           *int64      `json:"pid"`
	Status        AgentStatus `json:"status"`
	LastHeartbeat *time.Time  `json:"last_heartbeat"`
	CurrentTaskID *int64      `json:"current_task_id"`
	WorkspacePath *string     `json:"workspace_path"`
	CreatedAt     *time.Time  `json:"created_at"`
}

// AgentRollup aggregates all rows of one worker type.
type AgentRollup struct {
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	Script  string `json:"script"`
	Total   int    `json:"total"`
	Working int    `json:"working"`
	Idle    int    `json:"idle"`
}

// ValidateAgent rejects agent rows without an identity.
func ValidateAgent(a Agent) error {
	if a.ID <= 0 {
		return fmt.Errorf("agent: invalid id %d", a.ID)
	}
	if a.Name == "" {
		return fmt.Errorf("agent %d: empty name", a.ID)
	}
	return nil
}
