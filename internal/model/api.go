package model

import "time"

// StatusSummary is the dashboard's top-level snapshot. A section that failed
// to load is empty and its error is reported under Errors by section name.
type StatusSummary struct {
	Queues        []QueueSummary    `json:"queues"`
	RootWorkItems []RootWorkItem    `json:"rootWorkItems"`
	Agents        []AgentRollup     `json:"agents"`
	Announcements []Announcement    `json:"announcements"`
	Timestamp     time.Time         `json:"timestamp"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// Section names used as keys of StatusSummary.Errors.
const (
	SectionQueues        = "queues"
	SectionRootWorkItems = "rootWorkItems"
	SectionAgents        = "agents"
	SectionAnnouncements = "announcements"
)

// QueueDetail is a queue with its active tasks.
type QueueDetail struct {
	Queue Queue  `json:"queue"`
	Tasks []Task `json:"tasks"`
}

// TaskDetail is a task with its one-hop relations.
type TaskDetail struct {
	Task         Task          `json:"task"`
	ParentTask   *Task         `json:"parentTask"`
	RootWorkItem *RootWorkItem `json:"rootWorkItem"`
	ChildTasks   []Task        `json:"childTasks"`
}

// RootWorkItemDetail is a root work item with every task attached to it.
type RootWorkItemDetail struct {
	RootWorkItem RootWorkItem `json:"rootWorkItem"`
	Tasks        []Task       `json:"tasks"`
}

// AgentDetail lists every instance of a worker type and the tasks it holds.
type AgentDetail struct {
	Agents      []Agent `json:"agents"`
	ActiveTasks []Task  `json:"activeTasks"`
}

// AnnouncementDetail is an announcement with the task it refers to.
type AnnouncementDetail struct {
	Announcement Announcement `json:"announcement"`
	RelatedTask  *Task        `json:"relatedTask"`
}

// FileView is a rendered markdown document from the project tree.
type FileView struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	HTML    string `json:"html"`
}
