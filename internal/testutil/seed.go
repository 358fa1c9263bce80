package testutil

import "time"

// Task describes a task row. Zero values become NULL or the column default.
type Task struct {
	Title       string
	Description string
	Status      string
	Priority    int
	ClaimedBy   string
	Result      string
	Error       string
	ParentID    int64
	RootID      int64
	CreatedAt   time.Time
	CompletedAt time.Time
}

// WorkItem describes a root_work_items row.
type WorkItem struct {
	Title       string
	Status      string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	FailedAt    time.Time
}

// Agent describes an agents row.
type Agent struct {
	Name          string
	InstanceID    string
	PID           int
	Status        string
	LastHeartbeat time.Time
	CurrentTaskID int64
	WorkspacePath string
}

// Announcement describes an announcements row.
type Announcement struct {
	Type      string
	AgentName string
	Message   string
	Context   string
	TaskID    int64
	CreatedAt time.Time
}

// Queue inserts a queue and returns its id.
func (s *Store) Queue(name string) int64 {
	s.t.Helper()
	return s.insert(`INSERT INTO queues (name, description) VALUES (?, ?)`, name, "Queue for "+name)
}

// Task inserts a task and returns its id.
func (s *Store) Task(t Task) int64 {
	s.t.Helper()
	if t.Status == "" {
		t.Status = "pending"
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	return s.insert(
		`INSERT INTO tasks (title, description, status, priority, claimed_by, result, error,
		   parent_task_id, root_work_item_id, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, null(t.Description), t.Status, t.Priority, null(t.ClaimedBy), null(t.Result), null(t.Error),
		nullID(t.ParentID), nullID(t.RootID), s.ts(t.CreatedAt), s.ts(t.CompletedAt))
}

// Place puts a task in a queue with the given placement status. The
// placement's created and updated times are both at.
func (s *Store) Place(queueID, taskID int64, status string, at time.Time) int64 {
	s.t.Helper()
	return s.insert(
		`INSERT INTO queue_tasks (queue_id, task_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		queueID, taskID, status, s.ts(at), s.ts(at))
}

// WorkItem inserts a root work item and returns its id.
func (s *Store) WorkItem(w WorkItem) int64 {
	s.t.Helper()
	if w.Status == "" {
		w.Status = "pending"
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	return s.insert(
		`INSERT INTO root_work_items (title, status, created_at, started_at, completed_at, failed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.Title, w.Status, s.ts(w.CreatedAt), s.ts(w.StartedAt), s.ts(w.CompletedAt), s.ts(w.FailedAt))
}

// Agent inserts an agent row and returns its id.
func (s *Store) Agent(a Agent) int64 {
	s.t.Helper()
	if a.Status == "" {
		a.Status = "idle"
	}
	var pid any
	if a.PID > 0 {
		pid = a.PID
	}
	return s.insert(
		`INSERT INTO agents (name, instance_id, pid, status, last_heartbeat, current_task_id, workspace_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, null(a.InstanceID), pid, a.Status, s.ts(a.LastHeartbeat), nullID(a.CurrentTaskID), null(a.WorkspacePath))
}

// Announcement inserts an announcement and returns its id.
func (s *Store) Announcement(a Announcement) int64 {
	s.t.Helper()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return s.insert(
		`INSERT INTO announcements (type, agent_name, message, context, task_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Type, null(a.AgentName), a.Message, null(a.Context), nullID(a.TaskID), s.ts(a.CreatedAt))
}

func null(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
