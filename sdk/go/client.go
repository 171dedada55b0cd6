package teamhubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal TeamHub HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  10 * time.Second,
	}
}

// Task represents the API directive model (partial).
type Task struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	Day        string `json:"day"`
	AssigneeID string `json:"assigneeId"`
	IsAccepted bool   `json:"isAccepted,omitempty"`
	IsBlocked  bool   `json:"isBlocked,omitempty"`
}

// Goal represents a strategic objective (partial).
type Goal struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Progress int    `json:"progress"`
}

// ActivityEvent represents one row of the activity feed.
type ActivityEvent struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Action     string `json:"action"`
	TargetName string `json:"targetName"`
	Timestamp  int64  `json:"timestamp"`
}

// FrictionWarning is a dependency ordering conflict.
type FrictionWarning struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	TaskIDs []string `json:"taskIds"`
}

// Session is the result of a login.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login opens a session and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, userID, role string) (Session, error) {
	body := map[string]any{"userId": userID, "role": role}
	var resp Session
	if err := c.do(ctx, http.MethodPost, c.path("session/login"), body, &resp); err != nil {
		return Session{}, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

// Tasks lists directives.
func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, c.path("tasks"), nil, &resp)
	return resp, err
}

// CreateTask creates a directive.
func (c *Client) CreateTask(ctx context.Context, title, priority, day, assigneeID string) (Task, error) {
	body := map[string]any{
		"title":      title,
		"priority":   priority,
		"day":        day,
		"assigneeId": assigneeID,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, c.path("tasks"), body, &resp)
	return resp, err
}

// SetTaskStatus transitions a directive.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	body := map[string]any{"status": status}
	var resp Task
	endpoint := c.path(fmt.Sprintf("tasks/%s/status", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// AcceptTask accepts a directive for its assignee.
func (c *Client) AcceptTask(ctx context.Context, taskID string) (Task, error) {
	var resp Task
	endpoint := c.path(fmt.Sprintf("tasks/%s/accept", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPost, endpoint, struct{}{}, &resp)
	return resp, err
}

// SubmitTask submits deliverables for review.
func (c *Client) SubmitTask(ctx context.Context, taskID string, links []string, comment string) (Task, error) {
	deliverables := make([]map[string]any, 0, len(links))
	for _, link := range links {
		deliverables = append(deliverables, map[string]any{"type": "link", "url": link})
	}
	body := map[string]any{"deliverables": deliverables, "comment": comment}
	var resp Task
	endpoint := c.path(fmt.Sprintf("tasks/%s/submit", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ApproveTask verifies and closes a submitted directive.
func (c *Client) ApproveTask(ctx context.Context, taskID string) (Task, error) {
	var resp Task
	endpoint := c.path(fmt.Sprintf("tasks/%s/approve", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPost, endpoint, struct{}{}, &resp)
	return resp, err
}

// Goals lists strategic objectives.
func (c *Client) Goals(ctx context.Context) ([]Goal, error) {
	var resp []Goal
	err := c.do(ctx, http.MethodGet, c.path("goals"), nil, &resp)
	return resp, err
}

// Activity returns the recent activity feed.
func (c *Client) Activity(ctx context.Context) ([]ActivityEvent, error) {
	var resp []ActivityEvent
	err := c.do(ctx, http.MethodGet, c.path("activity"), nil, &resp)
	return resp, err
}

// Friction runs a dependency friction scan.
func (c *Client) Friction(ctx context.Context) ([]FrictionWarning, error) {
	var resp struct {
		Warnings []FrictionWarning `json:"warnings"`
	}
	err := c.do(ctx, http.MethodGet, c.path("friction"), nil, &resp)
	return resp.Warnings, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) path(p string) string {
	return fmt.Sprintf("%s/%s", strings.Trim(c.BasePath, "/"), strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
