package api

import (
	"encoding/json"
	"time"

	"adloom/internal/session"
)

// timeFormat is used for RFC3339 timestamps in API payloads.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// SessionView describes a session in a transport-friendly format.
type SessionView struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	State        string          `json:"state"`
	CurrentStep  string          `json:"current_step"`
	Progress     int             `json:"progress"`
	BrandContext string          `json:"brand_context"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
	CompletedAt  string          `json:"completed_at,omitempty"`
}

// LogEntryView describes one execution-log row.
type LogEntryView struct {
	ID           int64           `json:"id"`
	SessionID    string          `json:"session_id"`
	StepName     string          `json:"step_name"`
	Status       string          `json:"status"`
	ToolName     string          `json:"tool_name,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	DurationMS   int64           `json:"duration_ms"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// StartAgentRequest begins a new agent run for a brand.
type StartAgentRequest struct {
	UserID       string `json:"user_id"`
	BrandContext string `json:"brand_context"`
}

// StartAgentResponse acknowledges an accepted run.
type StartAgentResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// ApprovalRequest resolves a pending script approval gate.
type ApprovalRequest struct {
	SessionID         string   `json:"session_id"`
	Approved          bool     `json:"approved"`
	SelectedScriptIDs []string `json:"selected_script_ids,omitempty"`
}

// CancelRequest aborts a session.
type CancelRequest struct {
	SessionID string `json:"session_id"`
}

// SessionListResponse wraps a collection of sessions.
type SessionListResponse struct {
	Sessions []SessionView `json:"sessions"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Session SessionView `json:"session"`
}

// LogListResponse wraps the execution log of a session.
type LogListResponse struct {
	Entries []LogEntryView `json:"entries"`
}

// SessionStats aggregates session counts by state.
type SessionStats struct {
	Total            int `json:"total"`
	Active           int `json:"active"`
	AwaitingApproval int `json:"awaiting_approval"`
	Completed        int `json:"completed"`
	Error            int `json:"error"`
	Cancelled        int `json:"cancelled"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	Version      string       `json:"version"`
	DatabasePath string       `json:"database_path"`
	LockFilePath string       `json:"lock_file_path"`
	StartedAt    string       `json:"started_at,omitempty"`
	Sessions     SessionStats `json:"sessions"`
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromSession converts a stored session into its API representation.
func FromSession(sess *session.Session) SessionView {
	if sess == nil {
		return SessionView{}
	}
	view := SessionView{
		ID:           sess.ID,
		UserID:       sess.UserID,
		State:        string(sess.State),
		CurrentStep:  sess.CurrentStep,
		Progress:     sess.Progress,
		BrandContext: sess.BrandContext,
		CreatedAt:    formatTime(sess.CreatedAt),
		UpdatedAt:    formatTime(sess.UpdatedAt),
	}
	if sess.CompletedAt != nil {
		view.CompletedAt = formatTime(*sess.CompletedAt)
	}
	if raw := rawJSON(sess.MetadataJSON); raw != nil {
		view.Metadata = raw
	}
	return view
}

// FromSessions converts a slice of stored sessions.
func FromSessions(sessions []*session.Session) []SessionView {
	if len(sessions) == 0 {
		return nil
	}
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, FromSession(sess))
	}
	return views
}

// FromLogEntry converts a stored execution-log row.
func FromLogEntry(entry *session.LogEntry) LogEntryView {
	if entry == nil {
		return LogEntryView{}
	}
	return LogEntryView{
		ID:           entry.ID,
		SessionID:    entry.SessionID,
		StepName:     entry.StepName,
		Status:       entry.Status,
		ToolName:     entry.ToolName,
		Input:        rawJSON(entry.InputJSON),
		Output:       rawJSON(entry.OutputJSON),
		ErrorMessage: entry.ErrorMessage,
		DurationMS:   entry.DurationMS,
		CreatedAt:    formatTime(entry.CreatedAt),
	}
}

// FromLogEntries converts a slice of execution-log rows.
func FromLogEntries(entries []*session.LogEntry) []LogEntryView {
	if len(entries) == 0 {
		return nil
	}
	views := make([]LogEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, FromLogEntry(entry))
	}
	return views
}

// FromStats converts aggregate session counts.
func FromStats(stats session.Stats) SessionStats {
	return SessionStats{
		Total:            stats.Total,
		Active:           stats.Active,
		AwaitingApproval: stats.AwaitingApproval,
		Completed:        stats.Completed,
		Error:            stats.Error,
		Cancelled:        stats.Cancelled,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func rawJSON(value string) json.RawMessage {
	if value == "" || !json.Valid([]byte(value)) {
		return nil
	}
	return json.RawMessage(value)
}
