package steps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"adloom/internal/logging"
	"adloom/internal/session"
)

// MemoryReader loads recent brand memories for a user.
type MemoryReader interface {
	RecentMemories(ctx context.Context, userID string, limit int) ([]*session.BrandMemory, error)
}

// BrandAnalysis summarizes what is known about the brand. When prior
// memories exist the summary leans on them with high confidence; otherwise
// the raw brand context is used with reduced confidence.
type BrandAnalysis struct {
	memories MemoryReader
	limit    int
	logger   *slog.Logger
}

// NewBrandAnalysis constructs the brand analysis step.
func NewBrandAnalysis(memories MemoryReader, limit int, logger *slog.Logger) *BrandAnalysis {
	if limit <= 0 {
		limit = 5
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BrandAnalysis{memories: memories, limit: limit, logger: logger}
}

func (b *BrandAnalysis) Name() session.Step {
	return session.StepAnalyzeBrand
}

func (b *BrandAnalysis) Execute(ctx context.Context, runCtx *RunContext) (Result, error) {
	memories, err := b.memories.RecentMemories(ctx, runCtx.UserID, b.limit)
	if err != nil {
		return Result{}, fmt.Errorf("load brand memories: %w", err)
	}

	if len(memories) > 0 {
		lines := make([]string, 0, len(memories))
		for _, memory := range memories {
			lines = append(lines, memory.Content)
		}
		b.logger.Debug("brand analysis from memories",
			logging.String(logging.FieldUserID, runCtx.UserID),
			logging.Int("memory_count", len(memories)))
		return Result{
			Data: map[string]any{
				"brand_analysis": map[string]any{
					"summary":      strings.Join(lines, "\n"),
					"confidence":   0.95,
					"source":       "memories",
					"memory_count": len(memories),
				},
			},
			Summary: fmt.Sprintf("Recalled %d brand memories", len(memories)),
		}, nil
	}

	return Result{
		Data: map[string]any{
			"brand_analysis": map[string]any{
				"summary":      runCtx.BrandContext,
				"confidence":   0.6,
				"source":       "raw_context",
				"memory_count": 0,
			},
		},
		Summary: "No prior memories; using raw brand context",
	}, nil
}
