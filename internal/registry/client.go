// Package registry is the request-response client for the orchestrator's
// task registry: the authoritative task record before any terminal stream
// event has been observed.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Task struct {
	TaskID        string `json:"task_id"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	ResultSummary string `json:"result_summary,omitempty"`
	TotalTurns    int    `json:"total_turns,omitempty"`
	TotalTokens   int    `json:"total_tokens,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type Health struct {
	Status      string   `json:"status"`
	Version     string   `json:"version"`
	Providers   []string `json:"providers"`
	ActiveTasks int      `json:"active_tasks"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) GetTask(ctx context.Context, taskID string) (Task, error) {
	var out Task
	err := c.getJSON(ctx, "/api/tasks/"+url.PathEscape(taskID), &out)
	return out, err
}

func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.getJSON(ctx, "/api/tasks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, description string) (Task, error) {
	var out Task
	err := c.postJSON(ctx, "/api/tasks", map[string]any{"description": description}, &out)
	return out, err
}

func (c *Client) CancelTask(ctx context.Context, taskID string) error {
	return c.postJSON(ctx, "/api/tasks/"+url.PathEscape(taskID)+"/cancel", map[string]any{}, nil)
}

// SendMessage is the REST fallback for operators not attached to the
// stream; attached consumers use the stream's outbound channel instead.
func (c *Client) SendMessage(ctx context.Context, taskID, message string) error {
	return c.postJSON(ctx, "/api/tasks/"+url.PathEscape(taskID)+"/message", map[string]any{"message": message}, nil)
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.getJSON(ctx, "/api/health", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
