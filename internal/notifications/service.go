package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adloom/internal/config"
)

const userAgent = "Adloom/0.1.0"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyRunCompleted(ctx context.Context, sessionID, brandContext string) error
	NotifyRunFailed(ctx context.Context, sessionID string, err error) error
	NotifyAwaitingApproval(ctx context.Context, sessionID string, scriptCount int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		completion: cfg.Notifications.Completion,
		approval:   cfg.Notifications.Approval,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	completion bool
	approval   bool
	errors     bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, sessionID, brandContext string) error {
	if !n.completion {
		return nil
	}
	brandContext = strings.TrimSpace(brandContext)
	data := payload{
		title:    "Adloom - Run Complete",
		message:  fmt.Sprintf("Campaign run finished: %s (session %s)", brandContext, sessionID),
		tags:     []string{"adloom", "run", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, sessionID string, err error) error {
	if !n.errors {
		return nil
	}
	message := "unknown"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Adloom - Run Failed",
		message:  fmt.Sprintf("Session %s failed: %s", sessionID, message),
		tags:     []string{"adloom", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAwaitingApproval(ctx context.Context, sessionID string, scriptCount int) error {
	if !n.approval {
		return nil
	}
	data := payload{
		title:   "Adloom - Approval Needed",
		message: fmt.Sprintf("%d scripts ready for review (session %s)", scriptCount, sessionID),
		tags:    []string{"adloom", "approval", "pending"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Adloom - Test",
		message:  "Notification system test",
		tags:     []string{"adloom", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error     { return nil }
func (noopService) NotifyAwaitingApproval(context.Context, string, int) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }

// NewNoop returns a notification service that drops everything (used in tests).
func NewNoop() Service {
	return noopService{}
}
