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
	"time"

	"github.com/fieldops/dispatch/internal/query"
	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/internal/worker"
)

// Client talks to a dispatch server over its JSON API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-success envelope from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Pagination *Pagination     `json:"pagination"`
}

type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (c *Client) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks", nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskListOptions narrows ListTasks. Zero values match everything.
type TaskListOptions struct {
	Status     string
	Priority   string
	AssignedTo string
	AreaID     string
	Limit      int
	Offset     int
}

func (c *Client) ListTasks(ctx context.Context, opts TaskListOptions) ([]*query.TaskView, *Pagination, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Priority != "" {
		q.Set("priority", opts.Priority)
	}
	if opts.AssignedTo != "" {
		q.Set("assignedTo", opts.AssignedTo)
	}
	if opts.AreaID != "" {
		q.Set("areaId", opts.AreaID)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	var out []*query.TaskView
	var page Pagination
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks", q, nil, &out, &page); err != nil {
		return nil, nil, err
	}
	return out, &page, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*query.TaskView, error) {
	var out query.TaskView
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks/"+url.PathEscape(id), nil, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, req *task.UpdateTaskRequest) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPatch, "/api/v1/tasks/"+url.PathEscape(id), nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+url.PathEscape(id), nil, nil, nil, nil)
}

func (c *Client) AssignTask(ctx context.Context, id string) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks/"+url.PathEscape(id)+"/assign", nil, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReassignTask(ctx context.Context, id, workerID string) (*task.Task, error) {
	var out task.Task
	req := &task.ReassignRequest{WorkerID: workerID}
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks/"+url.PathEscape(id)+"/reassign", nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkerListOptions narrows ListWorkers. Zero values match everything.
type WorkerListOptions struct {
	Skill        string
	Availability string
	Limit        int
	Offset       int
}

func (c *Client) ListWorkers(ctx context.Context, opts WorkerListOptions) ([]*query.WorkerView, *Pagination, error) {
	q := url.Values{}
	if opts.Skill != "" {
		q.Set("skill", opts.Skill)
	}
	if opts.Availability != "" {
		q.Set("availability", opts.Availability)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	var out []*query.WorkerView
	var page Pagination
	if err := c.do(ctx, http.MethodGet, "/api/v1/workers", q, nil, &out, &page); err != nil {
		return nil, nil, err
	}
	return out, &page, nil
}

func (c *Client) GetWorker(ctx context.Context, id string) (*query.WorkerView, error) {
	var out query.WorkerView
	if err := c.do(ctx, http.MethodGet, "/api/v1/workers/"+url.PathEscape(id), nil, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateWorker(ctx context.Context, req *worker.CreateWorkerRequest) (*worker.Worker, error) {
	var out worker.Worker
	if err := c.do(ctx, http.MethodPost, "/api/v1/workers", nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any, page *Pagination) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Code: env.Error, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	if page != nil && env.Pagination != nil {
		*page = *env.Pagination
	}
	return nil
}
