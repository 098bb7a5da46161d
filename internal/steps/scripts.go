package steps

import (
	"context"
	"fmt"
	"log/slog"

	"adloom/internal/logging"
	"adloom/internal/services"
	"adloom/internal/services/llm"
	"adloom/internal/session"
)

// ScriptGeneration turns concepts into candidate UGC scripts. Its output
// always lands in the scripts metadata key before the approval gate.
type ScriptGeneration struct {
	completer Completer
	logger    *slog.Logger
}

// NewScriptGeneration constructs the script generation step.
func NewScriptGeneration(completer Completer, logger *slog.Logger) *ScriptGeneration {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ScriptGeneration{completer: completer, logger: logger}
}

func (s *ScriptGeneration) Name() session.Step {
	return session.StepGenerateScripts
}

const scriptSystemPrompt = `You write short UGC video ad scripts.
Respond with a JSON object {"scripts": [{"id": "...", "concept_id": "...", "hook": "...", "body": "...", "call_to_action": "..."}]}.
Every script needs a unique id.`

func (s *ScriptGeneration) Execute(ctx context.Context, runCtx *RunContext) (Result, error) {
	if s.completer == nil || !s.completer.Configured() {
		s.logger.Debug("script generation using simulated payload",
			logging.String(logging.FieldSessionID, runCtx.SessionID))
		return Result{
			Data:    map[string]any{"scripts": sampleScripts()},
			Summary: "Simulated script generation (LLM not configured)",
		}, nil
	}

	content, err := s.completer.CompleteJSON(ctx, scriptSystemPrompt, s.prompt(runCtx))
	if err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(s.Name()), "generate scripts",
			"Script generation request failed", err)
	}

	var parsed struct {
		Scripts []Script `json:"scripts"`
	}
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(s.Name()), "decode scripts",
			"Script generation returned malformed JSON", err)
	}
	if len(parsed.Scripts) == 0 {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(s.Name()), "generate scripts",
			"Script generation returned no scripts", nil)
	}
	for i := range parsed.Scripts {
		if parsed.Scripts[i].ID == "" {
			parsed.Scripts[i].ID = fmt.Sprintf("script-id-%d", i+1)
		}
	}
	return Result{
		Data:     map[string]any{"scripts": parsed.Scripts},
		ToolName: "llm",
		Summary:  fmt.Sprintf("%d script candidates from model", len(parsed.Scripts)),
	}, nil
}

func (s *ScriptGeneration) prompt(runCtx *RunContext) string {
	prompt := "Brand: " + runCtx.BrandContext
	var concepts []Concept
	if ok, err := runCtx.DecodeMetaKey("concepts", &concepts); err == nil && ok {
		for _, concept := range concepts {
			prompt += fmt.Sprintf("\nConcept %s (%s): %s", concept.ID, concept.Title, concept.Description)
		}
	}
	var trends []map[string]any
	if ok, err := runCtx.DecodeMetaKey("trends", &trends); err == nil && ok && len(trends) > 0 {
		prompt += fmt.Sprintf("\nWrite scripts that fit the %d current trends supplied earlier.", len(trends))
	}
	return prompt
}
