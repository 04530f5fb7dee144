// Package valyu is a client for the Valyu search, contents, answer and
// DeepResearch APIs.
package valyu

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.valyu.ai/v1"

// Observer receives one call per finished request. outcome is "ok" or the
// error kind ("rate_limit", "invalid_api_key", ...).
type Observer interface {
	ObserveRequest(endpoint, outcome string, duration time.Duration)
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the transport; Timeout is ignored when set.
	HTTPClient *http.Client
	// Limiter throttles outgoing calls client-side. Nil means no throttling.
	Limiter  *rate.Limiter
	Observer Observer
}

// Client is safe for concurrent use.
type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	observer Observer
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   httpClient,
		limiter:  cfg.Limiter,
		observer: cfg.Observer,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Search runs a deep search with default settings.
func (c *Client) Search(ctx context.Context, query string) (*SearchResponse, error) {
	return c.DeepSearch(ctx, NewSearchRequest(query))
}

func (c *Client) DeepSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.do(ctx, searchEndpoint, http.MethodPost, "/deepsearch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Contents extracts content from up to 10 URLs.
func (c *Client) Contents(ctx context.Context, req ContentsRequest) (*ContentsResponse, error) {
	if req.URLs == nil {
		req.URLs = []string{}
	}

	var resp ContentsResponse
	if err := c.do(ctx, contentsEndpoint, http.MethodPost, "/contents", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	var resp AnswerResponse
	if err := c.do(ctx, answerEndpoint, http.MethodPost, "/answer", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ask is Answer with default settings.
func (c *Client) Ask(ctx context.Context, query string) (*AnswerResponse, error) {
	return c.Answer(ctx, NewAnswerRequest(query))
}

func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*Task, error) {
	var resp Task
	if err := c.do(ctx, createTaskEndpoint, http.MethodPost, "/deepresearch/tasks", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Research creates a task with default settings.
func (c *Client) Research(ctx context.Context, query string) (*Task, error) {
	return c.CreateTask(ctx, NewTaskRequest(query))
}

func (c *Client) TaskStatus(ctx context.Context, taskID string) (*Task, error) {
	var resp Task
	if err := c.do(ctx, taskStatusEndpoint, http.MethodGet, taskPath(taskID, "status"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTasks lists tasks created with the given API key id. limit <= 0 leaves
// the page size to the server.
func (c *Client) ListTasks(ctx context.Context, apiKeyID string, limit int) (*TaskList, error) {
	q := url.Values{}
	q.Set("api_key_id", apiKeyID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp TaskList
	if err := c.do(ctx, listTasksEndpoint, http.MethodGet, "/deepresearch/list?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTask adds a follow-up instruction to a running task.
func (c *Client) UpdateTask(ctx context.Context, taskID, instruction string) (*OperationResponse, error) {
	body := struct {
		Instruction string `json:"instruction"`
	}{Instruction: instruction}

	var resp OperationResponse
	if err := c.do(ctx, updateTaskEndpoint, http.MethodPost, taskPath(taskID, "update"), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CancelTask(ctx context.Context, taskID string) (*OperationResponse, error) {
	var resp OperationResponse
	if err := c.do(ctx, cancelTaskEndpoint, http.MethodPost, taskPath(taskID, "cancel"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) (*OperationResponse, error) {
	var resp OperationResponse
	if err := c.do(ctx, deleteTaskEndpoint, http.MethodDelete, taskPath(taskID, "delete"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func taskPath(taskID, action string) string {
	return "/deepresearch/tasks/" + url.PathEscape(taskID) + "/" + action
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
