package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer describes the HTTP client used by the video generation service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures the runtime settings for the video generation API.
type Config struct {
	APIKey              string
	BaseURL             string
	Model               string
	PollIntervalSeconds int
	TimeoutSeconds      int
}

// Task is a submitted generation task together with its final output.
type Task struct {
	ID       string
	State    string
	VideoURL string
}

// Task states reported by the generation API.
const (
	TaskStateWaiting = "waiting"
	TaskStateSuccess = "success"
	TaskStateFailed  = "fail"
)

// Client drives the submit-and-poll video generation workflow.
type Client struct {
	cfg          Config
	client       HTTPDoer
	pollInterval time.Duration
	timeout      time.Duration
}

// NewClient constructs a video generation client from the configuration.
func NewClient(cfg Config) *Client {
	pollInterval := 10 * time.Second
	if cfg.PollIntervalSeconds > 0 {
		pollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}
	timeout := 10 * time.Minute
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:   strings.TrimSpace(cfg.Model),
		},
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: pollInterval,
		timeout:      timeout,
	}
}

// NewClientWithDoer constructs a client with a custom HTTP doer (used in tests).
func NewClientWithDoer(cfg Config, doer HTTPDoer) *Client {
	c := NewClient(cfg)
	if doer != nil {
		c.client = doer
	}
	return c
}

// Configured reports whether the client has a usable credential.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

// Generate submits a prompt and blocks until the task finishes or the
// configured timeout elapses.
func (c *Client) Generate(ctx context.Context, prompt string) (Task, error) {
	task, err := c.Submit(ctx, prompt)
	if err != nil {
		return Task{}, err
	}
	return c.WaitForCompletion(ctx, task.ID)
}

// Submit creates a generation task and returns its identifier.
func (c *Client) Submit(ctx context.Context, prompt string) (Task, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Task{}, fmt.Errorf("videogen submit: prompt required")
	}
	if !c.Configured() {
		return Task{}, fmt.Errorf("videogen submit: api key required")
	}

	payload := map[string]any{
		"model": c.cfg.Model,
		"input": map[string]any{
			"prompt": prompt,
		},
	}
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/jobs/createTask", payload, &parsed); err != nil {
		return Task{}, err
	}
	if parsed.Code != http.StatusOK || strings.TrimSpace(parsed.Data.TaskID) == "" {
		return Task{}, fmt.Errorf("videogen submit: api error %d: %s", parsed.Code, strings.TrimSpace(parsed.Msg))
	}
	return Task{ID: parsed.Data.TaskID, State: TaskStateWaiting}, nil
}

// Poll fetches the current state of a task.
func (c *Client) Poll(ctx context.Context, taskID string) (Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Task{}, fmt.Errorf("videogen poll: task id required")
	}
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			TaskID     string `json:"taskId"`
			State      string `json:"state"`
			FailMsg    string `json:"failMsg"`
			ResultJSON string `json:"resultJson"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs/recordInfo?taskId="+taskID, nil, &parsed); err != nil {
		return Task{}, err
	}
	if parsed.Code != http.StatusOK {
		return Task{}, fmt.Errorf("videogen poll: api error %d: %s", parsed.Code, strings.TrimSpace(parsed.Msg))
	}

	task := Task{ID: taskID, State: parsed.Data.State}
	switch parsed.Data.State {
	case TaskStateFailed:
		return task, fmt.Errorf("videogen poll: task failed: %s", strings.TrimSpace(parsed.Data.FailMsg))
	case TaskStateSuccess:
		var result struct {
			ResultURLs []string `json:"resultUrls"`
		}
		if parsed.Data.ResultJSON != "" {
			if err := json.Unmarshal([]byte(parsed.Data.ResultJSON), &result); err != nil {
				return task, fmt.Errorf("videogen poll: decode result: %w", err)
			}
		}
		if len(result.ResultURLs) > 0 {
			task.VideoURL = result.ResultURLs[0]
		}
	}
	return task, nil
}

// WaitForCompletion polls a task until it succeeds, fails, or times out.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string) (Task, error) {
	deadline := time.Now().Add(c.timeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		task, err := c.Poll(ctx, taskID)
		if err != nil {
			return task, err
		}
		if task.State == TaskStateSuccess {
			return task, nil
		}
		if time.Now().After(deadline) {
			return task, fmt.Errorf("videogen wait: task %s timed out after %s", taskID, c.timeout)
		}
		select {
		case <-ctx.Done():
			return task, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("videogen request: encode body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("videogen request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("videogen request: http error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("videogen request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("videogen request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("videogen request: decode response: %w", err)
	}
	return nil
}
