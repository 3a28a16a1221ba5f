package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"workline-sync/domain"
)

// ErrMalformedResponse is returned when the remote body is not the expected
// task array shape.
var ErrMalformedResponse = errors.New("remote: malformed response")

// StatusError reports a non-2xx response from the remote service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: unexpected status %d", e.Code)
}

const maxResponseSize = 4 << 20

// Client calls the remote workforce task endpoints. The service is a black
// box: every call either returns decoded tasks or an error the sync layer
// converts into a local fallback.
type Client struct {
	baseURL string
	bearer  string
	http    *http.Client
}

// New creates a Client for the given base URL. The bearer token is optional;
// token acquisition belongs to the auth collaborator, not this client.
func New(baseURL, bearer string) *Client {
	return &Client{
		baseURL: baseURL,
		bearer:  bearer,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListTasks fetches every task.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return c.fetchTasks(ctx, "/api/tasks")
}

// ListMine fetches the tasks assigned to the given user key.
func (c *Client) ListMine(ctx context.Context, userKey string) ([]domain.Task, error) {
	return c.fetchTasks(ctx, "/api/tasks/my?user="+url.QueryEscape(userKey))
}

// CreateTask submits a draft and returns the remote-confirmed record. The
// idempotency key guards against duplicate creation on retried requests.
func (c *Client) CreateTask(ctx context.Context, draft domain.Task, idempotencyKey string) (domain.Task, error) {
	body, err := sonic.Marshal(draft)
	if err != nil {
		return domain.Task{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tasks", bytes.NewReader(body))
	if err != nil {
		return domain.Task{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.doTask(req)
}

// UpdateTaskStatus applies a status change remotely and returns the confirmed
// record.
func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) (domain.Task, error) {
	body, err := sonic.Marshal(map[string]string{"status": status})
	if err != nil {
		return domain.Task{}, err
	}
	path := c.baseURL + "/api/tasks/" + url.PathEscape(id) + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, path, bytes.NewReader(body))
	if err != nil {
		return domain.Task{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doTask(req)
}

// DeleteTask removes the task remotely.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path := c.baseURL + "/api/tasks/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	return nil
}

func (c *Client) fetchTasks(ctx context.Context, path string) ([]domain.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	return decodeTaskList(data)
}

func (c *Client) doTask(req *http.Request) (domain.Task, error) {
	resp, err := c.do(req)
	if err != nil {
		return domain.Task{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.Task{}, err
	}
	var task domain.Task
	if err := sonic.Unmarshal(data, &task); err != nil {
		return domain.Task{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return task, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp, nil
}

// decodeTaskList accepts either a bare JSON array of tasks or the wrapped
// {"tasks": [...]} form some deployments return.
func decodeTaskList(data []byte) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err == nil {
		return tasks, nil
	}
	var wrapped struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := sonic.Unmarshal(data, &wrapped); err == nil && wrapped.Tasks != nil {
		return wrapped.Tasks, nil
	}
	return nil, ErrMalformedResponse
}
