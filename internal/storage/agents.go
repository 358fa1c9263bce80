package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/logyard/queuedash/internal/model"
)

const agentColumns = `id, name, instance_id, pid, status, last_heartbeat, current_task_id, workspace_path, created_at`

func scanAgent(row rowScanner) (model.Agent, error) {
	var (
		a                 model.Agent
		instance, status  sql.NullString
		workspace         sql.NullString
		pid, currentTask  sql.NullInt64
		heartbeat, create nullTime
	)
	if err := row.Scan(&a.ID, &a.Name, &instance, &pid, &status, &heartbeat, &currentTask, &workspace, &create); err != nil {
		return model.Agent{}, err
	}
	a.InstanceID = stringPtr(instance)
	a.PID = int64Ptr(pid)
	a.Status = model.AgentStatus(status.String)
	a.LastHeartbeat = heartbeat.ptr()
	a.CurrentTaskID = int64Ptr(currentTask)
	a.WorkspacePath = stringPtr(workspace)
	a.CreatedAt = create.ptr()
	return a, nil
}

// ListAgentsByName returns every instance row of a worker type, freshest
// heartbeat first. Rows that never sent a heartbeat come last.
func (db *DB) ListAgentsByName(ctx context.Context, name string) ([]model.Agent, error) {
	rows, err := db.query(ctx,
		`SELECT `+agentColumns+`
		 FROM agents
		 WHERE name = ?
		 ORDER BY last_heartbeat IS NULL, last_heartbeat DESC, id DESC`,
		name)
	if err != nil {
		return nil, fmt.Errorf("storage: list agents %q: %w", name, err)
	}
	agents, err := collect(db, rows, "agent", scanAgent, model.ValidateAgent)
	if err != nil {
		return nil, fmt.Errorf("storage: list agents %q: %w", name, err)
	}
	return agents, nil
}

// ListAgentRollups counts agent rows per name. Working and idle only count
// rows whose heartbeat is at or after freshSince; stale rows count toward
// the total alone.
func (db *DB) ListAgentRollups(ctx context.Context, freshSince time.Time) ([]model.AgentRollup, error) {
	cutoff := db.dialect.cutoff(freshSince)
	rows, err := db.query(ctx,
		`SELECT name, COUNT(*),
		   COALESCE(SUM(CASE WHEN status = 'working' AND `+db.dialect.since("last_heartbeat")+` THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN status = 'idle' AND `+db.dialect.since("last_heartbeat")+` THEN 1 ELSE 0 END), 0)
		 FROM agents
		 GROUP BY name
		 ORDER BY name`,
		cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("storage: list agent rollups: %w", err)
	}
	out, err := collect(db, rows, "agent", func(r rowScanner) (model.AgentRollup, error) {
		var (
			ru                   model.AgentRollup
			total, working, idle int64
		)
		if err := r.Scan(&ru.Name, &total, &working, &idle); err != nil {
			return ru, err
		}
		ru.Total, ru.Working, ru.Idle = int(total), int(working), int(idle)
		return ru, nil
	}, func(ru model.AgentRollup) error {
		return model.ValidateAgent(model.Agent{ID: 1, Name: ru.Name})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list agent rollups: %w", err)
	}
	return out, nil
}

// ListAgentPIDs returns the recorded process ids of a worker type.
func (db *DB) ListAgentPIDs(ctx context.Context, name string) ([]int, error) {
	rows, err := db.query(ctx, `SELECT pid FROM agents WHERE name = ? AND pid IS NOT NULL ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("storage: list agent pids: %w", err)
	}
	pids, err := collect(db, rows, "agent", func(r rowScanner) (int, error) {
		var pid int64
		err := r.Scan(&pid)
		return int(pid), err
	}, func(pid int) error {
		if pid <= 0 {
			return fmt.Errorf("agent %q: invalid pid %d", name, pid)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list agent pids: %w", err)
	}
	return pids, nil
}
