package mcp

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func readOnlyTool(name, description string, opts ...mcplib.ToolOption) mcplib.Tool {
	opts = append([]mcplib.ToolOption{
		mcplib.WithDescription(description),
		mcplib.WithReadOnlyHintAnnotation(true),
		mcplib.WithIdempotentHintAnnotation(true),
		mcplib.WithOpenWorldHintAnnotation(false),
	}, opts...)
	return mcplib.NewTool(name, opts...)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(readOnlyTool("queuedash_status",
		`Summarize the task queue system.

Returns queue counts (queued, in progress, done in the last hour), open
root work items, per-agent-type rollups and recent announcements. A
section that could not be loaded is listed under "errors" instead of
failing the whole summary.`,
	), s.handleStatus)

	s.mcpServer.AddTool(readOnlyTool("queuedash_queue",
		"Show a queue and the tasks currently placed in it, highest priority first.",
		mcplib.WithString("name",
			mcplib.Description("Queue name, e.g. execution"),
			mcplib.Required(),
		),
	), s.handleQueue)

	s.mcpServer.AddTool(readOnlyTool("queuedash_task",
		"Show a task with its parent task, root work item and child tasks.",
		mcplib.WithNumber("id",
			mcplib.Description("Task id"),
			mcplib.Required(),
		),
	), s.handleTask)

	s.mcpServer.AddTool(readOnlyTool("queuedash_root_work_item",
		"Show a root work item and every task created under it.",
		mcplib.WithNumber("id",
			mcplib.Description("Root work item id"),
			mcplib.Required(),
		),
	), s.handleRootWorkItem)

	s.mcpServer.AddTool(readOnlyTool("queuedash_agent",
		"List the instances of an agent type and the tasks they are working on.",
		mcplib.WithString("name",
			mcplib.Description("Agent type name, e.g. execution"),
			mcplib.Required(),
		),
	), s.handleAgent)

	s.mcpServer.AddTool(readOnlyTool("queuedash_announcement",
		"Show an announcement and the task it refers to, if any.",
		mcplib.WithNumber("id",
			mcplib.Description("Announcement id"),
			mcplib.Required(),
		),
	), s.handleAnnouncement)
}

func (s *Server) handleStatus(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	summary, err := s.dashboard.ResolveStatusSummary(ctx)
	if err != nil {
		return s.resolveErrorResult("status", err), nil
	}
	return jsonResult(summary)
}

func (s *Server) handleQueue(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errorResult("name is required"), nil
	}
	detail, err := s.dashboard.ResolveQueueDetail(ctx, name)
	if err != nil {
		return s.resolveErrorResult("queue", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	detail, err := s.dashboard.ResolveTaskDetail(ctx, int64(request.GetInt("id", 0)))
	if err != nil {
		return s.resolveErrorResult("task", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleRootWorkItem(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	detail, err := s.dashboard.ResolveRootWorkItemDetail(ctx, int64(request.GetInt("id", 0)))
	if err != nil {
		return s.resolveErrorResult("root work item", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return errorResult("name is required"), nil
	}
	detail, err := s.dashboard.ResolveAgentDetail(ctx, name)
	if err != nil {
		return s.resolveErrorResult("agent", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleAnnouncement(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	detail, err := s.dashboard.ResolveAnnouncementDetail(ctx, int64(request.GetInt("id", 0)))
	if err != nil {
		return s.resolveErrorResult("announcement", err), nil
	}
	return jsonResult(detail)
}
