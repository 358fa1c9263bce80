// Package mcp exposes the dashboard's read views to MCP clients.
//
// Every tool and resource is read-only: agents can inspect queues, tasks,
// work items and announcements the same way the web and terminal clients
// do, but nothing here changes the backing store.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/logyard/queuedash/internal/service/dashboard"
	"github.com/logyard/queuedash/internal/storage"
)

const statusURI = "queuedash://status"

// Server wraps the MCP server with the dashboard service.
type Server struct {
	mcpServer *mcpserver.MCPServer
	dashboard *dashboard.Service
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(svc *dashboard.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		dashboard: svc,
		logger:    logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"queuedash",
		version,
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// jsonResult renders v as the tool's text content.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

// resolveErrorResult turns a resolver failure into a tool error the
// caller can act on. Store details stay in the log.
func (s *Server) resolveErrorResult(what string, err error) *mcplib.CallToolResult {
	var verr *dashboard.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorResult(verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		return errorResult(what + " not found")
	case errors.Is(err, storage.ErrUnavailable):
		s.logger.Error("mcp: backing store unavailable", "what", what, "error", err)
		return errorResult("backing store unavailable")
	default:
		s.logger.Error("mcp: resolve failed", "what", what, "error", err)
		return errorResult("failed to load " + what)
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
