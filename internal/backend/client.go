package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

// Client defaults.
const (
	DefaultURL            = "http://127.0.0.1:8000"
	DefaultRequestTimeout = 60 * time.Second
	DefaultRetryCount     = 2
)

// Query modes offered by the overlay.
const (
	ModeExecute      = "execute"
	ModeAddKnowledge = "Add to knowledge"
	ModeInsert       = "insert"
)

// Modes lists the query modes in the order the overlay presents them.
var Modes = []string{ModeExecute, ModeAddKnowledge, ModeInsert}

// ErrEmptyQuery is returned when a query has no text.
var ErrEmptyQuery = errors.New("query is empty")

// ClientOptions configures the HTTP client.
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	// RateLimit caps queries per second. Zero means unlimited.
	RateLimit float64
}

// ContextPart is one piece of supplementary context attached to a query.
type ContextPart struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	MimeType string `json:"mime_type,omitempty"`
}

// TextPart builds a text context part.
func TextPart(content string) ContextPart {
	return ContextPart{Type: "text", Content: content}
}

// AgentRequest is the body of POST /api/agent.
type AgentRequest struct {
	Message      string        `json:"message"`
	ContextParts []ContextPart `json:"context_parts,omitempty"`
	SessionID    string        `json:"session_id,omitempty"`
}

// AgentResponse is the reply from POST /api/agent.
type AgentResponse struct {
	Response  string         `json:"response" yaml:"response"`
	SessionID string         `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Health is the reply from GET /api/health.
type Health struct {
	Status string `json:"status" yaml:"status"`
	Agent  string `json:"agent,omitempty" yaml:"agent,omitempty"`
}

// Query is a user request from the overlay.
type Query struct {
	Text string
	Mode string
	// Settings is the opaque settings blob; empty or "{}" is omitted.
	Settings json.RawMessage
	// SelectedText comes from the stored overlay context, if any.
	SelectedText string
	SessionID    string
}

// Client talks to the backend's HTTP API.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a backend API client.
func NewClient(opts ClientOptions, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "pointerd")
	// Only retry when the backend is unreachable or overloaded; a 500 from
	// the agent is a real answer.
	http.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == 502 || r.StatusCode() == 503 || r.StatusCode() == 504
	})

	return &Client{
		http:    http,
		limiter: limiter,
		logger:  logger.With("component", "backend-client"),
	}
}

// BuildRequest turns a Query into the wire request.
func BuildRequest(q Query) AgentRequest {
	req := AgentRequest{
		Message:   q.Text,
		SessionID: q.SessionID,
	}
	if req.SessionID == "" {
		req.SessionID = ulid.Make().String()
	}
	if q.SelectedText != "" {
		req.ContextParts = append(req.ContextParts, TextPart("Selected text: "+q.SelectedText))
	}
	if q.Mode != "" {
		req.ContextParts = append(req.ContextParts, TextPart("Mode: "+q.Mode))
	}
	if s := strings.TrimSpace(string(q.Settings)); s != "" && s != "{}" && s != "null" {
		req.ContextParts = append(req.ContextParts, TextPart("Settings: "+s))
	}
	return req
}

// Query sends a query to the agent endpoint.
func (c *Client) Query(ctx context.Context, q Query) (*AgentResponse, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req := BuildRequest(q)
	logger := c.logger.With("session_id", req.SessionID)
	logger.Debug("sending query", "mode", q.Mode, "context_parts", len(req.ContextParts))

	var out AgentResponse
	var apiErr struct {
		Detail string `json:"detail"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/agent")
	if err != nil {
		logger.Error("query failed", "error", err)
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	if resp.IsError() {
		detail := apiErr.Detail
		if detail == "" {
			detail = strings.TrimSpace(resp.String())
		}
		logger.Error("query rejected", "status", resp.StatusCode(), "detail", detail)
		return nil, fmt.Errorf("backend returned %s: %s", resp.Status(), detail)
	}

	logger.Debug("query answered", "elapsed", resp.Time())
	return &out, nil
}

// Health checks the backend health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/health")
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("backend returned %s", resp.Status())
	}
	return &out, nil
}
