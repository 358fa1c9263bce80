// Package client is the fetch layer over the dashboard's HTTP API, shared by
// the terminal dashboard and the status command.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/logyard/queuedash/internal/model"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the dashboard (e.g. "http://localhost:3000").
	BaseURL string

	// Token is an operator JWT sent with lifecycle actions. Optional.
	Token string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 10 seconds.
	Timeout time.Duration
}

// Client calls the dashboard API. All methods are safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("queuedash: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("queuedash: invalid BaseURL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  httpClient,
	}, nil
}

// BaseURL returns the dashboard root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the summary snapshot.
func (c *Client) Status(ctx context.Context) (*model.StatusSummary, error) {
	var resp model.StatusSummary
	if err := c.get(ctx, "/api/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Queue fetches a queue and its active tasks.
func (c *Client) Queue(ctx context.Context, name string) (*model.QueueDetail, error) {
	var resp model.QueueDetail
	if err := c.get(ctx, "/api/queue/"+url.PathEscape(name), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Task fetches a task with its relations.
func (c *Client) Task(ctx context.Context, id int64) (*model.TaskDetail, error) {
	var resp model.TaskDetail
	if err := c.get(ctx, "/api/task/"+strconv.FormatInt(id, 10), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RootWorkItem fetches a root work item and its tasks.
func (c *Client) RootWorkItem(ctx context.Context, id int64) (*model.RootWorkItemDetail, error) {
	var resp model.RootWorkItemDetail
	if err := c.get(ctx, "/api/root-work-item/"+strconv.FormatInt(id, 10), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Agent fetches every instance of a worker type.
func (c *Client) Agent(ctx context.Context, name string) (*model.AgentDetail, error) {
	var resp model.AgentDetail
	if err := c.get(ctx, "/api/agent/"+url.PathEscape(name), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Announcement fetches an announcement and its related task.
func (c *Client) Announcement(ctx context.Context, id int64) (*model.AnnouncementDetail, error) {
	var resp model.AnnouncementDetail
	if err := c.get(ctx, "/api/announcement/"+strconv.FormatInt(id, 10), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// File fetches a markdown document from the project tree.
func (c *Client) File(ctx context.Context, path string) (*model.FileView, error) {
	var resp model.FileView
	if err := c.get(ctx, "/api/file?path="+url.QueryEscape(path), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartAgent launches one more worker of the given type.
func (c *Client) StartAgent(ctx context.Context, agentType string) error {
	return c.post(ctx, "/api/agent/start", map[string]string{"agentType": agentType}, nil)
}

// StopAgent terminates every worker of the given type.
func (c *Client) StopAgent(ctx context.Context, agentType string) error {
	return c.post(ctx, "/api/agent/stop", map[string]string{"agentType": agentType}, nil)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("queuedash: create request: %w", err)
	}
	return c.doRequest(req, dest)
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("queuedash: marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("queuedash: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("queuedash: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("queuedash: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, body)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("queuedash: decode response: %w", err)
	}
	return nil
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
