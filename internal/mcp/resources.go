package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			statusURI,
			"Status Summary",
			mcplib.WithResourceDescription("Queue counts, open root work items, agent rollups and recent announcements"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleStatusResource,
	)
}

func (s *Server) handleStatusResource(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	summary, err := s.dashboard.ResolveStatusSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: status summary: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal status: %w", err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      statusURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
