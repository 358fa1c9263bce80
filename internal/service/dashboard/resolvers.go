package dashboard

import (
	"context"
	"fmt"

	"github.com/logyard/queuedash/internal/model"
)

// ResolveQueueSummary returns every queue with its counts, in pipeline
// order. done_last_hour covers the recent window.
func (s *Service) ResolveQueueSummary(ctx context.Context) ([]model.QueueSummary, error) {
	counts, err := s.store.ListQueueCounts(ctx, s.now().Add(-s.opts.RecentWindow))
	if err != nil {
		return nil, fmt.Errorf("dashboard: queue summary: %w", err)
	}
	byName := make(map[string]model.QueueSummary, len(counts))
	names := make([]string, 0, len(counts))
	for _, c := range counts {
		c.Label = s.opts.Catalog.Label(c.Name)
		byName[c.Name] = c
		names = append(names, c.Name)
	}
	s.opts.Catalog.Order(names)

	out := make([]model.QueueSummary, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out, nil
}

// ResolveQueueDetail returns a queue and the tasks actively placed in it.
func (s *Service) ResolveQueueDetail(ctx context.Context, name string) (model.QueueDetail, error) {
	if name == "" {
		return model.QueueDetail{}, &ValidationError{Field: "queue name", Reason: "empty"}
	}
	if err := s.reachable(ctx, fmt.Sprintf("queue %q", name)); err != nil {
		return model.QueueDetail{}, err
	}
	q, err := s.store.GetQueueByName(ctx, name)
	if err != nil {
		return model.QueueDetail{}, fmt.Errorf("dashboard: queue %q: %w", name, err)
	}
	tasks, err := s.store.ListQueueTasks(ctx, q.ID)
	if err != nil {
		return model.QueueDetail{}, fmt.Errorf("dashboard: queue %q tasks: %w", name, err)
	}
	return model.QueueDetail{Queue: q, Tasks: tasks}, nil
}

// ResolveTaskDetail returns a task with its parent, root work item and
// children. Relations that cannot be loaded come back null or empty.
func (s *Service) ResolveTaskDetail(ctx context.Context, id int64) (model.TaskDetail, error) {
	if id <= 0 {
		return model.TaskDetail{}, &ValidationError{Field: "task id", Reason: "must be positive"}
	}
	if err := s.reachable(ctx, fmt.Sprintf("task %d", id)); err != nil {
		return model.TaskDetail{}, err
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return model.TaskDetail{}, fmt.Errorf("dashboard: task %d: %w", id, err)
	}
	detail := model.TaskDetail{Task: task, ChildTasks: []model.Task{}}

	if task.ParentTaskID != nil {
		if parent, err := s.store.GetTask(ctx, *task.ParentTaskID); err != nil {
			s.degrade(ctx, "parent task", err)
		} else {
			detail.ParentTask = &parent
		}
	}
	if task.RootWorkItemID != nil {
		if root, err := s.store.GetRootWorkItem(ctx, *task.RootWorkItemID); err != nil {
			s.degrade(ctx, "root work item", err)
		} else {
			detail.RootWorkItem = &root
		}
	}
	if children, err := s.store.ListChildTasks(ctx, id); err != nil {
		s.degrade(ctx, "child tasks", err)
	} else {
		detail.ChildTasks = children
	}
	return detail, nil
}

// ResolveRootWorkItemDetail returns a root work item and all of its tasks,
// each tagged with the queue currently holding it.
func (s *Service) ResolveRootWorkItemDetail(ctx context.Context, id int64) (model.RootWorkItemDetail, error) {
	if id <= 0 {
		return model.RootWorkItemDetail{}, &ValidationError{Field: "root work item id", Reason: "must be positive"}
	}
	if err := s.reachable(ctx, fmt.Sprintf("root work item %d", id)); err != nil {
		return model.RootWorkItemDetail{}, err
	}
	item, err := s.store.GetRootWorkItem(ctx, id)
	if err != nil {
		return model.RootWorkItemDetail{}, fmt.Errorf("dashboard: root work item %d: %w", id, err)
	}
	detail := model.RootWorkItemDetail{RootWorkItem: item, Tasks: []model.Task{}}
	if tasks, err := s.store.ListRootWorkItemTasks(ctx, id); err != nil {
		s.degrade(ctx, "root work item tasks", err)
	} else {
		detail.Tasks = tasks
	}
	return detail, nil
}

// ResolveAgentDetail returns every instance of a worker type and the
// unfinished tasks they hold. An unknown name yields empty lists.
func (s *Service) ResolveAgentDetail(ctx context.Context, name string) (model.AgentDetail, error) {
	if name == "" {
		return model.AgentDetail{}, &ValidationError{Field: "agent name", Reason: "empty"}
	}
	if err := s.reachable(ctx, fmt.Sprintf("agent %q", name)); err != nil {
		return model.AgentDetail{}, err
	}
	agents, err := s.store.ListAgentsByName(ctx, name)
	if err != nil {
		return model.AgentDetail{}, fmt.Errorf("dashboard: agent %q: %w", name, err)
	}
	detail := model.AgentDetail{Agents: agents, ActiveTasks: []model.Task{}}
	if tasks, err := s.store.ListClaimedTasks(ctx, name); err != nil {
		s.degrade(ctx, "active tasks", err)
	} else {
		detail.ActiveTasks = tasks
	}
	return detail, nil
}

// ResolveAnnouncementDetail returns an announcement and the task it names.
func (s *Service) ResolveAnnouncementDetail(ctx context.Context, id int64) (model.AnnouncementDetail, error) {
	if id <= 0 {
		return model.AnnouncementDetail{}, &ValidationError{Field: "announcement id", Reason: "must be positive"}
	}
	if err := s.reachable(ctx, fmt.Sprintf("announcement %d", id)); err != nil {
		return model.AnnouncementDetail{}, err
	}
	a, err := s.store.GetAnnouncement(ctx, id)
	if err != nil {
		return model.AnnouncementDetail{}, fmt.Errorf("dashboard: announcement %d: %w", id, err)
	}
	detail := model.AnnouncementDetail{Announcement: a}
	if a.TaskID != nil {
		if task, err := s.store.GetTask(ctx, *a.TaskID); err != nil {
			s.degrade(ctx, "related task", err)
		} else {
			detail.RelatedTask = &task
		}
	}
	return detail, nil
}

// reachable fails fast when the backing store is gone, before any query.
func (s *Service) reachable(ctx context.Context, what string) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("dashboard: %s: %w", what, err)
	}
	return nil
}
