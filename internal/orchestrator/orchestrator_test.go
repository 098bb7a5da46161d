package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"adloom/internal/logging"
	"adloom/internal/orchestrator"
	"adloom/internal/services"
	"adloom/internal/session"
	"adloom/internal/steps"
	"adloom/internal/testsupport"
)

type scriptedHandler struct {
	name    session.Step
	execute func(ctx context.Context, runCtx *steps.RunContext) (steps.Result, error)
}

func (h *scriptedHandler) Name() session.Step { return h.name }

func (h *scriptedHandler) Execute(ctx context.Context, runCtx *steps.RunContext) (steps.Result, error) {
	return h.execute(ctx, runCtx)
}

// recorder tracks handler invocations and the session progress observed at
// each execution.
type recorder struct {
	mu       sync.Mutex
	steps    []session.Step
	progress []int
}

func (r *recorder) record(step session.Step, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
	r.progress = append(r.progress, progress)
}

func (r *recorder) executed() []session.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Step(nil), r.steps...)
}

func (r *recorder) progressLadder() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...)
}

func passingHandlers(t *testing.T, store *session.Store, rec *recorder, failAt session.Step) []steps.Handler {
	t.Helper()

	payloads := map[session.Step]map[string]any{
		session.StepAnalyzeBrand:        {"brand_analysis": map[string]any{"confidence": 0.6}},
		session.StepResearchCompetitors: {"competitors": []map[string]any{{"name": "Rival"}}},
		session.StepAnalyzeTrends:       {"trends": []map[string]any{{"name": "fast hooks"}}},
		session.StepGenerateConcepts:    {"concepts": []map[string]any{{"id": "concept-1"}}},
		session.StepGenerateScripts: {"scripts": []map[string]any{
			{"id": "script-id-1", "hook": "h1"},
			{"id": "script-id-2", "hook": "h2"},
		}},
		session.StepGenerateVideos: {"videos": []map[string]any{{"script_id": "script-id-1"}}},
		session.StepUpdateMemory:   {"memory": map[string]any{"content": "insight"}},
	}

	order := []session.Step{
		session.StepAnalyzeBrand,
		session.StepResearchCompetitors,
		session.StepAnalyzeTrends,
		session.StepGenerateConcepts,
		session.StepGenerateScripts,
		session.StepGenerateVideos,
		session.StepUpdateMemory,
	}

	handlers := make([]steps.Handler, 0, len(order))
	for _, step := range order {
		step := step
		handlers = append(handlers, &scriptedHandler{
			name: step,
			execute: func(ctx context.Context, runCtx *steps.RunContext) (steps.Result, error) {
				sess, err := store.GetSession(ctx, runCtx.SessionID)
				if err != nil {
					t.Errorf("load session mid-run: %v", err)
					return steps.Result{}, err
				}
				rec.record(step, sess.Progress)
				if step == failAt {
					return steps.Result{}, errors.New("vendor exploded")
				}
				return steps.Result{Data: payloads[step]}, nil
			},
		})
	}
	return handlers
}

func newOrchestrator(t *testing.T, store *session.Store, rec *recorder, failAt session.Step, hub *logging.StreamHub) *orchestrator.Orchestrator {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return orchestrator.New(cfg, store, logging.NewNop(), hub, nil, passingHandlers(t, store, rec, failAt)...)
}

func startParkedSession(t *testing.T, store *session.Store, orch *orchestrator.Orchestrator) *session.Session {
	t.Helper()
	ctx := context.Background()
	sess := testsupport.NewSession(t, store, "user-1", "eco-friendly water bottles")
	if err := orch.Run(ctx, sess.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	parked, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if parked.State != session.StateAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", parked.State)
	}
	return parked
}

func TestRunSuspendsAtApprovalGate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, "", nil)

	parked := startParkedSession(t, store, orch)

	if parked.Progress != 75 {
		t.Fatalf("expected progress 75 at gate, got %d", parked.Progress)
	}
	if parked.CurrentStep != "Awaiting approval" {
		t.Fatalf("unexpected current step %q", parked.CurrentStep)
	}

	ladder := rec.progressLadder()
	want := []int{10, 25, 40, 55, 70}
	if len(ladder) != len(want) {
		t.Fatalf("expected %d executions before gate, got %v", len(want), ladder)
	}
	for i, progress := range want {
		if ladder[i] != progress {
			t.Fatalf("execution %d: expected progress %d, got %d", i, progress, ladder[i])
		}
	}

	meta, err := parked.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	scripts, ok := meta["scripts"].([]any)
	if !ok || len(scripts) != 2 {
		t.Fatalf("expected 2 scripts in metadata, got %#v", meta["scripts"])
	}

	entries, err := store.LogsForSession(context.Background(), parked.ID)
	if err != nil {
		t.Fatalf("LogsForSession failed: %v", err)
	}
	for _, entry := range entries {
		if entry.StepName == string(session.StepGenerateVideos) || entry.StepName == string(session.StepUpdateMemory) {
			t.Fatalf("unexpected log row for post-gate step %s", entry.StepName)
		}
	}
}

func TestApproveRestartsFromTopAndCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, "", nil)

	parked := startParkedSession(t, store, orch)

	ctx := context.Background()
	if err := orch.Resolve(ctx, parked.ID, true, []string{"script-id-1"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	orch.Wait()

	final, err := store.GetSession(ctx, parked.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if final.State != session.StateCompleted {
		t.Fatalf("expected completed, got %s", final.State)
	}
	if final.Progress != 100 || final.CompletedAt == nil {
		t.Fatalf("expected stamped completion, got progress=%d completed_at=%v", final.Progress, final.CompletedAt)
	}

	executed := rec.executed()
	// First pass stops at the gate; the approved pass re-enters at the top.
	if len(executed) != 12 {
		t.Fatalf("expected 12 handler executions across both passes, got %d: %v", len(executed), executed)
	}
	if executed[5] != session.StepAnalyzeBrand {
		t.Fatalf("expected approved pass to re-enter at analyze_brand, got %s", executed[5])
	}

	entries, err := store.LogsForSession(ctx, parked.ID)
	if err != nil {
		t.Fatalf("LogsForSession failed: %v", err)
	}
	var approvedEntry *session.LogEntry
	for _, entry := range entries {
		if entry.StepName == session.LogStepScriptsApproved {
			approvedEntry = entry
		}
	}
	if approvedEntry == nil {
		t.Fatal("expected scripts_approved log entry")
	}
	if approvedEntry.InputJSON == "" || approvedEntry.InputJSON == "{}" {
		t.Fatalf("expected selection in scripts_approved input, got %q", approvedEntry.InputJSON)
	}
}

func TestApproveWithoutSelectionCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, "", nil)

	parked := startParkedSession(t, store, orch)

	ctx := context.Background()
	if err := orch.Resolve(ctx, parked.ID, true, nil); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	orch.Wait()

	final, err := store.GetSession(ctx, parked.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if final.State != session.StateCompleted {
		t.Fatalf("expected approve-all to complete, got %s (progress=%d)", final.State, final.Progress)
	}
	if final.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", final.Progress)
	}

	meta, err := final.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	approved, ok := meta["approved_scripts"].([]any)
	if !ok || len(approved) != 0 {
		t.Fatalf("expected empty approval selection in metadata, got %#v", meta["approved_scripts"])
	}
	videos, ok := meta["videos"].([]any)
	if !ok || len(videos) == 0 {
		t.Fatal("expected videos in metadata after approve-all")
	}
}

func TestRejectRewindsWithoutRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, "", nil)

	parked := startParkedSession(t, store, orch)
	executedBefore := len(rec.executed())

	ctx := context.Background()
	if err := orch.Resolve(ctx, parked.ID, false, nil); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	orch.Wait()

	rewound, err := store.GetSession(ctx, parked.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if rewound.State != session.State(session.StepGenerateScripts) {
		t.Fatalf("expected generate_scripts state, got %s", rewound.State)
	}
	if rewound.CurrentStep != "Regenerating scripts" {
		t.Fatalf("unexpected current step %q", rewound.CurrentStep)
	}
	if rewound.Progress != 75 {
		t.Fatalf("rejection should not reset progress, got %d", rewound.Progress)
	}
	if len(rec.executed()) != executedBefore {
		t.Fatal("rejection must not invoke any step handler")
	}

	entries, err := store.LogsForSession(ctx, parked.ID)
	if err != nil {
		t.Fatalf("LogsForSession failed: %v", err)
	}
	var sawRejected bool
	for _, entry := range entries {
		if entry.StepName == session.LogStepScriptsRejected {
			sawRejected = true
		}
		if entry.StepName == string(session.StepGenerateVideos) {
			t.Fatal("rejection must not produce video generation log rows")
		}
	}
	if !sawRejected {
		t.Fatal("expected scripts_rejected log entry")
	}
}

func TestStepFailureTerminatesRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, session.StepAnalyzeTrends, nil)

	ctx := context.Background()
	sess := testsupport.NewSession(t, store, "user-1", "context")
	if err := orch.Run(ctx, sess.ID); err == nil {
		t.Fatal("expected run error")
	}

	failed, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if failed.State != session.StateError {
		t.Fatalf("expected error state, got %s", failed.State)
	}
	meta, err := failed.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if _, ok := meta["error"]; !ok {
		t.Fatalf("expected error recorded in metadata, got %#v", meta)
	}

	executed := rec.executed()
	last := executed[len(executed)-1]
	if last != session.StepAnalyzeTrends {
		t.Fatalf("expected run to stop at failing step, last executed %s", last)
	}

	entries, err := store.LogsForSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("LogsForSession failed: %v", err)
	}
	var failedRows int
	for _, entry := range entries {
		if entry.Status == session.LogStatusFailed {
			failedRows++
			if entry.StepName != string(session.StepAnalyzeTrends) {
				t.Fatalf("unexpected failed row for %s", entry.StepName)
			}
			if entry.ErrorMessage == "" {
				t.Fatal("expected error message on failed row")
			}
		}
	}
	if failedRows != 1 {
		t.Fatalf("expected exactly one failed row, got %d", failedRows)
	}
}

func TestResolveValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, "", nil)

	ctx := context.Background()
	if err := orch.Resolve(ctx, "no-such-session", true, nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	sess := testsupport.NewSession(t, store, "user-1", "context")
	if err := orch.Resolve(ctx, sess.ID, true, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for non-parked session, got %v", err)
	}
}

func TestStartSessionValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, "", nil)

	ctx := context.Background()
	if _, err := orch.StartSession(ctx, "", "brand"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty user, got %v", err)
	}
	if _, err := orch.StartSession(ctx, "user-1", "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty brand context, got %v", err)
	}
}

func TestCancelMarksSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	orch := newOrchestrator(t, store, rec, "", nil)

	ctx := context.Background()
	if err := orch.Cancel(ctx, "no-such-session"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	sess := testsupport.NewSession(t, store, "user-1", "context")
	if err := orch.Cancel(ctx, sess.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	cancelled, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if cancelled.State != session.StateCancelled {
		t.Fatalf("expected cancelled state, got %s", cancelled.State)
	}

	if err := orch.Cancel(ctx, sess.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for terminal session, got %v", err)
	}
}

func TestRunPublishesStreamEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	hub := logging.NewStreamHub(64)
	orch := newOrchestrator(t, store, rec, "", hub)

	startParkedSession(t, store, orch)

	events, _ := hub.Tail(64)
	var started int
	for _, event := range events {
		if event.Type == logging.EventStepStarted {
			started++
		}
	}
	if started != 5 {
		t.Fatalf("expected 5 step_started events before the gate, got %d", started)
	}
}
