package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kazz187/taskmanagement/internal/task"
)

// APIError is a non-2xx answer from the task service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("task service returned %d: %s", e.StatusCode, e.Message)
}

// TaskClient talks to the /allTask REST surface.
type TaskClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewTaskClient(baseURL string, httpClient *http.Client) *TaskClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TaskClient{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// ListTasks lists tasks newest first, optionally only those owned by email.
func (c *TaskClient) ListTasks(ctx context.Context, email string) ([]*task.Task, error) {
	path := "/allTask"
	if email != "" {
		path += "?" + url.Values{"email": {email}}.Encode()
	}
	var tasks []*task.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns nil without error when the task does not exist.
func (c *TaskClient) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t *task.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &t); err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (c *TaskClient) CreateTask(ctx context.Context, f task.Fields) (*task.InsertResult, error) {
	var res task.InsertResult
	if err := c.do(ctx, http.MethodPost, "/allTask", f, &res); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &res, nil
}

func (c *TaskClient) UpdateTaskStatus(ctx context.Context, id, status string) (string, error) {
	var res struct {
		Message string `json:"message"`
	}
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, taskPath(id), body, &res); err != nil {
		return "", fmt.Errorf("failed to update task status: %w", err)
	}
	return res.Message, nil
}

func (c *TaskClient) ReplaceTask(ctx context.Context, id string, f task.Fields) (*task.UpdateResult, error) {
	var res task.UpdateResult
	if err := c.do(ctx, http.MethodPut, taskPath(id), f, &res); err != nil {
		return nil, fmt.Errorf("failed to replace task: %w", err)
	}
	return &res, nil
}

func (c *TaskClient) DeleteTask(ctx context.Context, id string) (*task.DeleteResult, error) {
	var res task.DeleteResult
	if err := c.do(ctx, http.MethodDelete, taskPath(id), nil, &res); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	return &res, nil
}

func taskPath(id string) string {
	return "/allTask/" + url.PathEscape(id)
}

func (c *TaskClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
