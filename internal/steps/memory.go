package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"adloom/internal/logging"
	"adloom/internal/session"
)

// MemoryWriter appends a brand memory row.
type MemoryWriter interface {
	AddMemory(ctx context.Context, memory *session.BrandMemory) (*session.BrandMemory, error)
}

// Embedder turns memory text into a vector.
type Embedder interface {
	Configured() bool
	Embed(ctx context.Context, text string) ([]float64, error)
}

// MemoryUpdate distills the finished run into one brand memory so future
// runs start with more context.
type MemoryUpdate struct {
	memories  MemoryWriter
	completer Completer
	embedder  Embedder
	logger    *slog.Logger
}

// NewMemoryUpdate constructs the memory update step.
func NewMemoryUpdate(memories MemoryWriter, completer Completer, embedder Embedder, logger *slog.Logger) *MemoryUpdate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MemoryUpdate{memories: memories, completer: completer, embedder: embedder, logger: logger}
}

func (m *MemoryUpdate) Name() session.Step {
	return session.StepUpdateMemory
}

func (m *MemoryUpdate) Execute(ctx context.Context, runCtx *RunContext) (Result, error) {
	insight, err := m.insight(ctx, runCtx)
	if err != nil {
		return Result{}, err
	}

	memory := &session.BrandMemory{
		UserID:    runCtx.UserID,
		SessionID: runCtx.SessionID,
		Content:   insight,
	}
	if m.embedder != nil && m.embedder.Configured() {
		vector, err := m.embedder.Embed(ctx, insight)
		if err != nil {
			m.logger.Warn("memory embedding failed",
				logging.String(logging.FieldSessionID, runCtx.SessionID),
				logging.Error(err))
		} else if encoded, err := json.Marshal(vector); err == nil {
			memory.EmbeddingJSON = string(encoded)
		}
	}

	stored, err := m.memories.AddMemory(ctx, memory)
	if err != nil {
		return Result{}, fmt.Errorf("store brand memory: %w", err)
	}
	return Result{
		Data: map[string]any{
			"memory": map[string]any{
				"id":      stored.ID,
				"content": stored.Content,
			},
		},
		Summary: "Brand memory recorded",
	}, nil
}

func (m *MemoryUpdate) insight(ctx context.Context, runCtx *RunContext) (string, error) {
	if m.completer != nil && m.completer.Configured() {
		content, err := m.completer.Complete(ctx,
			"Summarize this ad campaign run as one concise takeaway for future campaigns. Respond with a single sentence.",
			m.runDigest(runCtx))
		if err == nil && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content), nil
		}
		if err != nil {
			m.logger.Warn("insight synthesis failed, using fallback",
				logging.String(logging.FieldSessionID, runCtx.SessionID),
				logging.Error(err))
		}
	}

	scripts, err := runCtx.Scripts()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Campaign for %q produced %d script candidates and completed video generation.",
		runCtx.BrandContext, len(scripts)), nil
}

func (m *MemoryUpdate) runDigest(runCtx *RunContext) string {
	var builder strings.Builder
	builder.WriteString("Brand: " + runCtx.BrandContext)
	var concepts []Concept
	if ok, err := runCtx.DecodeMetaKey("concepts", &concepts); err == nil && ok {
		for _, concept := range concepts {
			builder.WriteString("\nConcept: " + concept.Title)
		}
	}
	if scripts, err := runCtx.Scripts(); err == nil {
		for _, script := range scripts {
			builder.WriteString("\nScript hook: " + script.Hook)
		}
	}
	return builder.String()
}
