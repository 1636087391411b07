package workdeck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/port"
)

// DefaultTimeout bounds a single Workdeck call
const DefaultTimeout = 15 * time.Second

var (
	// ErrUnauthorized is returned on HTTP 401; the token must be renewed
	ErrUnauthorized = errors.New("workdeck: unauthorized")
	// ErrAPI is returned when Workdeck answers with status KO or ERROR
	ErrAPI = errors.New("workdeck: api error")
)

// envelope is the standard Workdeck response wrapper
type envelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Errors []apiError      `json:"errors,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Config holds the Workdeck connection settings
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries uint64
}

// Client implements port.WorkdeckClient over the Workdeck REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
	logger     *zap.Logger
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBackoff sets the base delay between retries
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// NewClient creates a Workdeck client
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    200 * time.Millisecond,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetUsers(ctx context.Context) ([]port.WorkdeckUser, error) {
	var users []port.WorkdeckUser
	if err := c.get(ctx, "/queries/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetProjects(ctx context.Context) ([]port.WorkdeckProject, error) {
	var projects []port.WorkdeckProject
	if err := c.get(ctx, "/queries/projects-summary", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*port.WorkdeckUser, error) {
	var me port.WorkdeckUser
	if err := c.get(ctx, "/queries/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) GetTasks(ctx context.Context) ([]port.WorkdeckTask, error) {
	var tasks []port.WorkdeckTask
	if err := c.get(ctx, "/queries/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetExpenses fetches the expense history between two DD/MM/YYYY dates
func (c *Client) GetExpenses(ctx context.Context, q port.ExpenseQuery) ([]port.WorkdeckExpense, error) {
	params := url.Values{}
	if q.StartDate != "" {
		params.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("endDate", q.EndDate)
	}

	var expenses []port.WorkdeckExpense
	if err := c.get(ctx, "/queries/expenses", params, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// get performs a GET, unwraps the envelope into out and retries transient failures
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		// Workdeck expects the slashes of DD/MM/YYYY unescaped
		target += "?" + strings.ReplaceAll(params.Encode(), "%2F", "/")
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	start := time.Now()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.do(ctx, target, out)
	})
	if err != nil {
		c.logger.Error("Workdeck request failed",
			zap.String("endpoint", endpoint),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}

	c.logger.Debug("Workdeck request completed",
		zap.String("endpoint", endpoint),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Client) do(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", bearer(c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.RetryableError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorMessage(body, resp.Status)))
	case resp.StatusCode >= 400:
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorMessage(body, resp.Status))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if !json.Valid(body) {
			return fmt.Errorf("failed to decode envelope: %w", err)
		}
		env = envelope{}
	}

	switch env.Status {
	case "OK":
	case "KO", "ERROR":
		return fmt.Errorf("%w: %s", ErrAPI, envelopeMessage(env))
	default:
		// not wrapped: the body is the payload itself
		env.Result = body
	}

	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

func bearer(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

func envelopeMessage(env envelope) string {
	if len(env.Errors) > 0 && env.Errors[0].Message != "" {
		return env.Errors[0].Message
	}
	var s string
	if err := json.Unmarshal(env.Result, &s); err == nil && s != "" {
		return s
	}
	return "API returned error status"
}

func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Errors  []apiError `json:"errors"`
		Message string     `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Errors) > 0 && payload.Errors[0].Message != "" {
			return payload.Errors[0].Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fallback
}

var _ port.WorkdeckClient = (*Client)(nil)
