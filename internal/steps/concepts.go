package steps

import (
	"context"
	"log/slog"

	"adloom/internal/logging"
	"adloom/internal/services"
	"adloom/internal/services/llm"
	"adloom/internal/session"
)

// ConceptGeneration drafts ad concepts from the research accumulated so far.
type ConceptGeneration struct {
	completer Completer
	logger    *slog.Logger
}

// NewConceptGeneration constructs the concept generation step.
func NewConceptGeneration(completer Completer, logger *slog.Logger) *ConceptGeneration {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ConceptGeneration{completer: completer, logger: logger}
}

func (c *ConceptGeneration) Name() session.Step {
	return session.StepGenerateConcepts
}

const conceptSystemPrompt = `You draft UGC video ad concepts.
Respond with a JSON object {"concepts": [{"id": "...", "title": "...", "angle": "...", "description": "..."}]}.
Produce exactly three concepts.`

func (c *ConceptGeneration) Execute(ctx context.Context, runCtx *RunContext) (Result, error) {
	if c.completer == nil || !c.completer.Configured() {
		c.logger.Debug("concept generation using simulated payload",
			logging.String(logging.FieldSessionID, runCtx.SessionID))
		return Result{
			Data:    map[string]any{"concepts": sampleConcepts()},
			Summary: "Simulated concept generation (LLM not configured)",
		}, nil
	}

	content, err := c.completer.CompleteJSON(ctx, conceptSystemPrompt, c.prompt(runCtx))
	if err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(c.Name()), "generate concepts",
			"Concept generation request failed", err)
	}

	var parsed struct {
		Concepts []Concept `json:"concepts"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(c.Name()), "decode concepts",
			"Concept generation returned malformed JSON", err)
	}
	return Result{
		Data:     map[string]any{"concepts": parsed.Concepts},
		ToolName: "llm",
		Summary:  "Concept drafts from model",
	}, nil
}

func (c *ConceptGeneration) prompt(runCtx *RunContext) string {
	prompt := "Brand: " + runCtx.BrandContext
	var analysis map[string]any
	if ok, err := runCtx.DecodeMetaKey("brand_analysis", &analysis); err == nil && ok {
		if summary, ok := analysis["summary"].(string); ok && summary != "" {
			prompt += "\nBrand analysis: " + summary
		}
	}
	return prompt
}
