package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"adloom/internal/config"
	"adloom/internal/logging"
	"adloom/internal/notifications"
	"adloom/internal/services"
	"adloom/internal/session"
	"adloom/internal/steps"
)

// stepEntry pins one workflow step to its display label and the progress
// value written when the step starts.
type stepEntry struct {
	step     session.Step
	label    string
	progress int
}

// The workflow is a fixed linear sequence. Ordering lives here and nowhere
// else; there is no dependency graph and no parallel branches.
var sequence = []stepEntry{
	{session.StepAnalyzeBrand, "Analyzing brand", 10},
	{session.StepResearchCompetitors, "Researching competitors", 25},
	{session.StepAnalyzeTrends, "Analyzing trends", 40},
	{session.StepGenerateConcepts, "Generating concepts", 55},
	{session.StepGenerateScripts, "Generating scripts", 70},
	{session.StepAwaitApproval, "Awaiting approval", 75},
	{session.StepGenerateVideos, "Generating videos", 90},
	{session.StepUpdateMemory, "Updating memory", 100},
}

// Orchestrator drives sessions through the fixed step sequence.
type Orchestrator struct {
	cfg      *config.Config
	store    *session.Store
	logger   *slog.Logger
	hub      *logging.StreamHub
	notifier notifications.Service
	handlers map[session.Step]steps.Handler

	mu       sync.Mutex
	lifetime context.Context
	wg       sync.WaitGroup
}

// New constructs an orchestrator over the provided step handlers.
func New(cfg *config.Config, store *session.Store, logger *slog.Logger, hub *logging.StreamHub, notifier notifications.Service, handlers ...steps.Handler) *Orchestrator {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	byStep := make(map[session.Step]steps.Handler, len(handlers))
	for _, handler := range handlers {
		byStep[handler.Name()] = handler
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		hub:      hub,
		notifier: notifier,
		handlers: byStep,
		lifetime: context.Background(),
	}
}

// SetLifetime binds detached runs to the daemon lifecycle so shutdown
// cancels in-flight work.
func (o *Orchestrator) SetLifetime(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ctx != nil {
		o.lifetime = ctx
	}
}

func (o *Orchestrator) lifetimeContext() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lifetime
}

// Wait blocks until all detached runs have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// StartSession creates a session and launches its run as a detached
// goroutine. The caller gets the session id back immediately.
func (o *Orchestrator) StartSession(ctx context.Context, userID, brandContext string) (*session.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, services.Wrap(services.ErrValidation, "start", "validate input", "user_id is required", nil)
	}
	if strings.TrimSpace(brandContext) == "" {
		return nil, services.Wrap(services.ErrValidation, "start", "validate input", "brand_context is required", nil)
	}

	sess, err := o.store.CreateSession(ctx, userID, brandContext)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	o.launch(sess.ID)
	return sess, nil
}

func (o *Orchestrator) launch(sessionID string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		runCtx := services.WithSessionID(o.lifetimeContext(), sessionID)
		if err := o.Run(runCtx, sessionID); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Warn("session run ended with error",
				logging.String(logging.FieldSessionID, sessionID),
				logging.Error(err))
		}
	}()
}

// Cancel marks a session cancelled. A loop already executing the session
// does not poll for this and will overwrite it on its next state write.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) error {
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return services.Wrap(services.ErrNotFound, "cancel", "load session", "session not found", nil)
	}
	if sess.State.IsTerminal() {
		return services.Wrap(services.ErrValidation, "cancel", "validate state",
			fmt.Sprintf("session already %s", sess.State), nil)
	}

	sess.State = session.StateCancelled
	sess.CurrentStep = "Cancelled"
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	o.publish(logging.EventSessionUpdated, sessionID, "", "Session cancelled", nil)
	return nil
}

// Run executes the fixed sequence for one session, starting from the top.
// It returns when the run completes, fails, suspends at the approval gate,
// or the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context, sessionID string) error {
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return services.Wrap(services.ErrNotFound, "run", "load session", "session not found", nil)
	}

	meta, err := sess.Metadata()
	if err != nil {
		return err
	}
	runCtx := &steps.RunContext{
		SessionID:    sess.ID,
		UserID:       sess.UserID,
		BrandContext: sess.BrandContext,
		Meta:         meta,
	}

	for _, entry := range sequence {
		if err := ctx.Err(); err != nil {
			o.logger.Debug("run interrupted by shutdown",
				logging.String(logging.FieldSessionID, sess.ID))
			return err
		}

		if entry.step == session.StepAwaitApproval {
			done, err := o.handleApprovalGate(ctx, sess, runCtx, entry)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			continue
		}

		if err := o.runStep(ctx, sess, runCtx, entry); err != nil {
			return err
		}
	}

	return o.completeRun(ctx, sess)
}

func (o *Orchestrator) runStep(ctx context.Context, sess *session.Session, runCtx *steps.RunContext, entry stepEntry) error {
	handler, ok := o.handlers[entry.step]
	if !ok {
		err := fmt.Errorf("no handler registered for step %s", entry.step)
		o.failRun(ctx, sess, entry, 0, err)
		return err
	}

	stepCtx := services.WithStep(ctx, string(entry.step))
	o.appendLog(stepCtx, &session.LogEntry{
		SessionID: sess.ID,
		StepName:  string(entry.step),
		Status:    session.LogStatusStarted,
	}, logging.EventStepStarted, entry.label)

	sess.State = session.State(entry.step)
	sess.CurrentStep = entry.label
	sess.Progress = entry.progress
	if err := o.store.UpdateSession(stepCtx, sess); err != nil {
		return fmt.Errorf("persist step transition: %w", err)
	}

	o.logger.Info("step started",
		logging.String(logging.FieldEventType, "step_start"),
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldStep, string(entry.step)))

	start := time.Now()
	result, err := handler.Execute(stepCtx, runCtx)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Debug("step interrupted by shutdown",
				logging.String(logging.FieldSessionID, sess.ID),
				logging.String(logging.FieldStep, string(entry.step)))
			return err
		}
		o.failRun(stepCtx, sess, entry, duration, err)
		return err
	}

	outputJSON := encodePayload(result.Data)
	o.appendLog(stepCtx, &session.LogEntry{
		SessionID:  sess.ID,
		StepName:   string(entry.step),
		Status:     session.LogStatusCompleted,
		ToolName:   result.ToolName,
		OutputJSON: outputJSON,
		DurationMS: duration.Milliseconds(),
	}, logging.EventStepCompleted, result.Summary)

	for key, value := range result.Data {
		runCtx.Meta[key] = value
	}
	if err := sess.SetMetadata(runCtx.Meta); err != nil {
		return err
	}
	if err := o.store.UpdateSession(stepCtx, sess); err != nil {
		return fmt.Errorf("persist step result: %w", err)
	}

	o.logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldStep, string(entry.step)),
		logging.Duration("step_duration", duration))
	return nil
}

// handleApprovalGate suspends the run the first time through. Once an
// approval selection exists in metadata the gate passes through so an
// approved restart can reach the later steps.
func (o *Orchestrator) handleApprovalGate(ctx context.Context, sess *session.Session, runCtx *steps.RunContext, entry stepEntry) (bool, error) {
	_, resolved, err := runCtx.ApprovedScriptIDs()
	if err != nil {
		return false, err
	}
	if resolved {
		return false, nil
	}

	sess.State = session.StateAwaitingApproval
	sess.CurrentStep = entry.label
	sess.Progress = entry.progress
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return false, fmt.Errorf("persist approval suspension: %w", err)
	}

	o.appendLog(ctx, &session.LogEntry{
		SessionID: sess.ID,
		StepName:  string(session.StepAwaitApproval),
		Status:    session.LogStatusStarted,
	}, logging.EventSessionUpdated, entry.label)

	scripts, _ := runCtx.Scripts()
	o.logger.Info("run suspended for approval",
		logging.String(logging.FieldEventType, "awaiting_approval"),
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Int("script_count", len(scripts)))
	if err := o.notifier.NotifyAwaitingApproval(ctx, sess.ID, len(scripts)); err != nil {
		o.logger.Warn("approval notification failed", logging.Error(err))
	}
	return true, nil
}

func (o *Orchestrator) completeRun(ctx context.Context, sess *session.Session) error {
	now := time.Now().UTC()
	sess.State = session.StateCompleted
	sess.CurrentStep = "Completed"
	sess.Progress = 100
	sess.CompletedAt = &now
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}

	o.publish(logging.EventSessionUpdated, sess.ID, "", "Run completed", nil)
	o.logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String(logging.FieldSessionID, sess.ID))
	if err := o.notifier.NotifyRunCompleted(ctx, sess.ID, sess.BrandContext); err != nil {
		o.logger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

func (o *Orchestrator) failRun(ctx context.Context, sess *session.Session, entry stepEntry, duration time.Duration, stepErr error) {
	o.appendLog(ctx, &session.LogEntry{
		SessionID:    sess.ID,
		StepName:     string(entry.step),
		Status:       session.LogStatusFailed,
		ErrorMessage: stepErr.Error(),
		DurationMS:   duration.Milliseconds(),
	}, logging.EventStepFailed, stepErr.Error())

	sess.State = session.StateError
	sess.CurrentStep = fmt.Sprintf("Failed: %s", entry.label)
	if err := sess.MergeMetadata(map[string]any{"error": stepErr.Error()}); err != nil {
		o.logger.Warn("failed to record error metadata", logging.Error(err))
	}
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		o.logger.Error("failed to persist run failure", logging.Error(err))
	}

	o.logger.Error("step failed",
		logging.String(logging.FieldEventType, "step_failed"),
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldStep, string(entry.step)),
		logging.Error(stepErr))
	if err := o.notifier.NotifyRunFailed(ctx, sess.ID, stepErr); err != nil {
		o.logger.Warn("failure notification failed", logging.Error(err))
	}
}

// appendLog writes one execution log row and mirrors it onto the stream
// hub. Append failures never propagate to the caller.
func (o *Orchestrator) appendLog(ctx context.Context, entry *session.LogEntry, eventType, message string) {
	if _, err := o.store.AppendLog(ctx, entry); err != nil {
		o.logger.Warn("execution log append failed",
			logging.String(logging.FieldSessionID, entry.SessionID),
			logging.String(logging.FieldStep, entry.StepName),
			logging.Error(err))
	}
	o.publish(eventType, entry.SessionID, entry.StepName, message, nil)
}

func (o *Orchestrator) publish(eventType, sessionID, step, message string, data map[string]any) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(logging.Event{
		Type:      eventType,
		SessionID: sessionID,
		Step:      step,
		Message:   message,
		Data:      data,
	})
}

func encodePayload(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(encoded)
}
