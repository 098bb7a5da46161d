package steps

import (
	"context"
	"fmt"
	"log/slog"

	"adloom/internal/logging"
	"adloom/internal/services"
	"adloom/internal/services/videogen"
	"adloom/internal/session"
)

// VideoGenerator renders one video from a prompt.
type VideoGenerator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (videogen.Task, error)
}

// VideoGeneration renders the approved scripts. When no explicit approval
// selection exists, all script candidates are rendered.
type VideoGeneration struct {
	generator VideoGenerator
	logger    *slog.Logger
}

// NewVideoGeneration constructs the video generation step.
func NewVideoGeneration(generator VideoGenerator, logger *slog.Logger) *VideoGeneration {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &VideoGeneration{generator: generator, logger: logger}
}

func (v *VideoGeneration) Name() session.Step {
	return session.StepGenerateVideos
}

func (v *VideoGeneration) Execute(ctx context.Context, runCtx *RunContext) (Result, error) {
	scripts, err := runCtx.Scripts()
	if err != nil {
		return Result{}, err
	}
	if len(scripts) == 0 {
		return Result{}, services.Wrap(
			services.ErrValidation, string(v.Name()), "select scripts",
			"No scripts available for video generation", nil)
	}

	approved, _, err := runCtx.ApprovedScriptIDs()
	if err != nil {
		return Result{}, err
	}
	selected := selectScripts(scripts, approved)

	videos := make([]map[string]any, 0, len(selected))
	for _, script := range selected {
		if v.generator == nil || !v.generator.Configured() {
			videos = append(videos, map[string]any{
				"script_id": script.ID,
				"status":    "simulated",
				"video_url": fmt.Sprintf("https://videos.invalid/%s/%s.mp4", runCtx.SessionID, script.ID),
			})
			continue
		}

		task, err := v.generator.Generate(ctx, renderPrompt(runCtx, script))
		if err != nil {
			return Result{}, services.Wrap(
				services.ErrExternalTool, string(v.Name()), "generate video",
				fmt.Sprintf("Video generation failed for script %s", script.ID), err)
		}
		videos = append(videos, map[string]any{
			"script_id": script.ID,
			"status":    task.State,
			"task_id":   task.ID,
			"video_url": task.VideoURL,
		})
	}

	v.logger.Debug("video generation finished",
		logging.String(logging.FieldSessionID, runCtx.SessionID),
		logging.Int("video_count", len(videos)))
	return Result{
		Data:     map[string]any{"videos": videos},
		ToolName: "videogen",
		Summary:  fmt.Sprintf("Rendered %d videos", len(videos)),
	}, nil
}

func selectScripts(scripts []Script, approvedIDs []string) []Script {
	if len(approvedIDs) == 0 {
		return scripts
	}
	approved := make(map[string]struct{}, len(approvedIDs))
	for _, id := range approvedIDs {
		approved[id] = struct{}{}
	}
	selected := make([]Script, 0, len(scripts))
	for _, script := range scripts {
		if _, ok := approved[script.ID]; ok {
			selected = append(selected, script)
		}
	}
	if len(selected) == 0 {
		return scripts
	}
	return selected
}

func renderPrompt(runCtx *RunContext, script Script) string {
	return fmt.Sprintf(
		"UGC style video ad for %s. Hook: %s. %s Close with: %s",
		runCtx.BrandContext, script.Hook, script.Body, script.CallToAction,
	)
}
