package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"adloom/internal/logging"
	"adloom/internal/services"
	"adloom/internal/session"
)

// Resolve applies an approval decision to a session parked at the gate.
// Approval merges the selection into metadata and relaunches the run from
// the top of the sequence; rejection rewinds the state to script
// generation and stops.
func (o *Orchestrator) Resolve(ctx context.Context, sessionID string, approved bool, selectedScriptIDs []string) error {
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return services.Wrap(services.ErrNotFound, "approve", "load session", "session not found", nil)
	}
	if sess.State != session.StateAwaitingApproval {
		return services.Wrap(services.ErrValidation, "approve", "validate state",
			fmt.Sprintf("session is %s, not awaiting approval", sess.State), nil)
	}

	if !approved {
		return o.reject(ctx, sess)
	}
	return o.approve(ctx, sess, selectedScriptIDs)
}

func (o *Orchestrator) approve(ctx context.Context, sess *session.Session, selectedScriptIDs []string) error {
	selection := selectedScriptIDs
	if selection == nil {
		selection = []string{}
	}
	inputJSON, _ := json.Marshal(map[string]any{"selected_script_ids": selection})

	o.appendLog(ctx, &session.LogEntry{
		SessionID: sess.ID,
		StepName:  session.LogStepScriptsApproved,
		Status:    session.LogStatusCompleted,
		InputJSON: string(inputJSON),
	}, logging.EventSessionUpdated, "Scripts approved")

	if err := sess.MergeMetadata(map[string]any{"approved_scripts": selection}); err != nil {
		return err
	}
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("persist approval: %w", err)
	}

	o.logger.Info("scripts approved",
		logging.String(logging.FieldEventType, "scripts_approved"),
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Int("selected_count", len(selection)))

	// The run re-enters at the first step rather than resuming after the
	// gate; the approval selection carries it through on the second pass.
	o.launch(sess.ID)
	return nil
}

func (o *Orchestrator) reject(ctx context.Context, sess *session.Session) error {
	o.appendLog(ctx, &session.LogEntry{
		SessionID: sess.ID,
		StepName:  session.LogStepScriptsRejected,
		Status:    session.LogStatusCompleted,
	}, logging.EventSessionUpdated, "Scripts rejected")

	// State rewinds without resetting progress; a rejected session shows
	// progress 75 until a new run overwrites it.
	sess.State = session.State(session.StepGenerateScripts)
	sess.CurrentStep = "Regenerating scripts"
	if err := o.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("persist rejection: %w", err)
	}

	o.logger.Info("scripts rejected",
		logging.String(logging.FieldEventType, "scripts_rejected"),
		logging.String(logging.FieldSessionID, sess.ID))
	return nil
}
