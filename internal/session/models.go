package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Step identifies one entry in the fixed workflow sequence.
type Step string

const (
	StepAnalyzeBrand        Step = "analyze_brand"
	StepResearchCompetitors Step = "research_competitors"
	StepAnalyzeTrends       Step = "analyze_trends"
	StepGenerateConcepts    Step = "generate_concepts"
	StepGenerateScripts     Step = "generate_scripts"
	StepAwaitApproval       Step = "await_approval"
	StepGenerateVideos      Step = "generate_videos"
	StepUpdateMemory        Step = "update_memory"
)

// State is the lifecycle value stored on a session row. While a run is in
// flight the state is the name of the active step; otherwise one of the
// terminal or gate values below.
type State string

const (
	StateAwaitingApproval State = "awaiting_approval"
	StateCompleted        State = "completed"
	StateError            State = "error"
	StateCancelled        State = "cancelled"
)

// DaemonRestartReason is the error message written to sessions found mid-run
// during startup recovery.
const DaemonRestartReason = "daemon restarted during run"

var stepStates = map[State]struct{}{
	State(StepAnalyzeBrand):        {},
	State(StepResearchCompetitors): {},
	State(StepAnalyzeTrends):       {},
	State(StepGenerateConcepts):    {},
	State(StepGenerateScripts):     {},
	State(StepAwaitApproval):       {},
	State(StepGenerateVideos):      {},
	State(StepUpdateMemory):        {},
}

var terminalStates = map[State]struct{}{
	StateCompleted: {},
	StateError:     {},
	StateCancelled: {},
}

// ParseState normalizes a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	if _, ok := stepStates[normalized]; ok {
		return normalized, true
	}
	if _, ok := terminalStates[normalized]; ok {
		return normalized, true
	}
	if normalized == StateAwaitingApproval {
		return normalized, true
	}
	return "", false
}

// IsTerminal reports whether a state ends the workflow.
func (s State) IsTerminal() bool {
	_, ok := terminalStates[s]
	return ok
}

// IsInFlight reports whether a state names a step currently being executed.
// The approval gate is a suspension, not in-flight work.
func (s State) IsInFlight() bool {
	if s == StateAwaitingApproval {
		return false
	}
	_, ok := stepStates[s]
	return ok
}

// Session is one workflow run persisted in SQLite.
type Session struct {
	ID           string
	UserID       string
	State        State
	CurrentStep  string
	Progress     int
	BrandContext string
	MetadataJSON string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Metadata decodes the session metadata bag. An empty bag decodes to an
// empty map.
func (s *Session) Metadata() (map[string]any, error) {
	if strings.TrimSpace(s.MetadataJSON) == "" {
		return map[string]any{}, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(s.MetadataJSON), &meta); err != nil {
		return nil, fmt.Errorf("decode session metadata: %w", err)
	}
	return meta, nil
}

// SetMetadata encodes the bag back onto the session.
func (s *Session) SetMetadata(meta map[string]any) error {
	if meta == nil {
		s.MetadataJSON = ""
		return nil
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode session metadata: %w", err)
	}
	s.MetadataJSON = string(encoded)
	return nil
}

// MergeMetadata folds the provided keys into the existing bag, overwriting
// on conflict.
func (s *Session) MergeMetadata(updates map[string]any) error {
	meta, err := s.Metadata()
	if err != nil {
		return err
	}
	for key, value := range updates {
		meta[key] = value
	}
	return s.SetMetadata(meta)
}

// Log entry statuses written by the orchestrator.
const (
	LogStatusStarted   = "started"
	LogStatusCompleted = "completed"
	LogStatusFailed    = "failed"
)

// Approval gate step names recorded in the execution log.
const (
	LogStepScriptsApproved = "scripts_approved"
	LogStepScriptsRejected = "scripts_rejected"
)

// LogEntry is one append-only execution log row.
type LogEntry struct {
	ID           int64
	SessionID    string
	StepName     string
	Status       string
	ToolName     string
	InputJSON    string
	OutputJSON   string
	ErrorMessage string
	DurationMS   int64
	CreatedAt    time.Time
}

// BrandMemory is one user-scoped memory record read during brand analysis
// and appended by the memory update step.
type BrandMemory struct {
	ID            int64
	UserID        string
	SessionID     string
	Content       string
	EmbeddingJSON string
	CreatedAt     time.Time
}

// Embedding decodes the stored vector, returning nil when absent.
func (m *BrandMemory) Embedding() ([]float64, error) {
	if strings.TrimSpace(m.EmbeddingJSON) == "" {
		return nil, nil
	}
	var vector []float64
	if err := json.Unmarshal([]byte(m.EmbeddingJSON), &vector); err != nil {
		return nil, fmt.Errorf("decode memory embedding: %w", err)
	}
	return vector, nil
}

// Stats aggregates session counts for the status endpoint and CLI.
type Stats struct {
	Total            int
	Active           int
	AwaitingApproval int
	Completed        int
	Error            int
	Cancelled        int
}
