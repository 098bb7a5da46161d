package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adloom/internal/logging"
)

// Client talks to a running adloom daemon over its HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption customizes client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds an API client for the given daemon address. The address
// may omit the scheme, in which case http is assumed.
func NewClient(address, token string, opts ...ClientOption) *Client {
	address = strings.TrimSpace(address)
	if address != "" && !strings.Contains(address, "://") {
		address = "http://" + address
	}
	client := &Client{
		baseURL:    strings.TrimRight(address, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// StatusError reports a non-success HTTP response from the daemon.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("daemon returned HTTP %d", e.Code)
	}
	return e.Message
}

// Start begins a new agent run and returns the accepted session.
func (c *Client) Start(ctx context.Context, userID, brandContext string) (*StartAgentResponse, error) {
	req := StartAgentRequest{UserID: userID, BrandContext: brandContext}
	var resp StartAgentResponse
	if err := c.do(ctx, http.MethodPost, "/api/agent/start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Approve resolves a pending approval gate.
func (c *Client) Approve(ctx context.Context, req ApprovalRequest) error {
	return c.do(ctx, http.MethodPost, "/api/agent/approve", req, nil)
}

// Cancel aborts a session.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, "/api/agent/cancel", CancelRequest{SessionID: sessionID}, nil)
}

// Sessions lists sessions, optionally filtered by state.
func (c *Client) Sessions(ctx context.Context, states ...string) ([]SessionView, error) {
	path := "/api/sessions"
	if len(states) > 0 {
		values := url.Values{}
		for _, state := range states {
			if trimmed := strings.TrimSpace(state); trimmed != "" {
				values.Add("state", trimmed)
			}
		}
		if encoded := values.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}
	var resp SessionListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// Session fetches a single session by id.
func (c *Client) Session(ctx context.Context, id string) (*SessionView, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// Logs fetches the execution log for a session.
func (c *Client) Logs(ctx context.Context, id string) ([]LogEntryView, error) {
	var resp LogListResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id)+"/logs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventFunc receives streamed events. Returning an error stops the stream.
type EventFunc func(evt logging.Event) error

// FollowEvents subscribes to the SSE event feed for a session and invokes
// fn for every event until the stream closes, fn errors, or ctx is done.
func (c *Client) FollowEvents(ctx context.Context, sessionID string, fn EventFunc) error {
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/events"
	return c.stream(ctx, http.MethodGet, path, nil, fn)
}

// StreamAgent runs a one-off conversational prompt against the daemon and
// invokes fn for every streamed event.
func (c *Client) StreamAgent(ctx context.Context, prompt string, fn EventFunc) error {
	path := "/api/agent/stream?prompt=" + url.QueryEscape(prompt)
	return c.stream(ctx, http.MethodGet, path, nil, fn)
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if target == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func (c *Client) stream(ctx context.Context, method, path string, body any, fn EventFunc) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var evt logging.Event
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return ctx.Err()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("daemon address is not configured")
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	var payload ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
