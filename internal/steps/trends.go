package steps

import (
	"context"
	"log/slog"

	"adloom/internal/logging"
	"adloom/internal/services"
	"adloom/internal/services/llm"
	"adloom/internal/session"
)

// Completer produces chat completions for the generation steps.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TrendAnalysis identifies current UGC ad formats relevant to the brand.
type TrendAnalysis struct {
	completer Completer
	logger    *slog.Logger
}

// NewTrendAnalysis constructs the trend analysis step.
func NewTrendAnalysis(completer Completer, logger *slog.Logger) *TrendAnalysis {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TrendAnalysis{completer: completer, logger: logger}
}

func (t *TrendAnalysis) Name() session.Step {
	return session.StepAnalyzeTrends
}

const trendSystemPrompt = `You analyze short-form video advertising trends.
Respond with a JSON object {"trends": [{"name": "...", "format": "...", "relevance": "high|medium|low"}]}.`

func (t *TrendAnalysis) Execute(ctx context.Context, runCtx *RunContext) (Result, error) {
	if t.completer == nil || !t.completer.Configured() {
		t.logger.Debug("trend analysis using simulated payload",
			logging.String(logging.FieldSessionID, runCtx.SessionID))
		return Result{
			Data:    map[string]any{"trends": sampleTrends()},
			Summary: "Simulated trend analysis (LLM not configured)",
		}, nil
	}

	content, err := t.completer.CompleteJSON(ctx, trendSystemPrompt,
		"Identify current UGC ad trends relevant to this brand: "+runCtx.BrandContext)
	if err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(t.Name()), "analyze trends",
			"Trend analysis request failed", err)
	}

	var parsed struct {
		Trends []map[string]any `json:"trends"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(t.Name()), "decode trends",
			"Trend analysis returned malformed JSON", err)
	}
	return Result{
		Data:     map[string]any{"trends": parsed.Trends},
		ToolName: "llm",
		Summary:  "Trend analysis from model",
	}, nil
}
