package session_test

import (
	"context"
	"fmt"
	"testing"

	"adloom/internal/session"
	"adloom/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	sess, err := store.CreateSession(ctx, "user-1", "eco-friendly water bottles")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected session id to be assigned")
	}
	if sess.State != session.State(session.StepAnalyzeBrand) {
		t.Fatalf("expected initial state %s, got %s", session.StepAnalyzeBrand, sess.State)
	}

	fetched, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched == nil || fetched.BrandContext != "eco-friendly water bottles" {
		t.Fatalf("unexpected fetched session: %#v", fetched)
	}
}

func TestCreateSessionRequiresUser(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.CreateSession(context.Background(), "  ", "context"); err == nil {
		t.Fatal("expected error when user id missing")
	}
}

func TestGetSessionMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	sess, err := store.GetSession(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session, got %#v", sess)
	}
}

func TestUpdateSessionPersistsMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	sess := testsupport.NewSession(t, store, "user-1", "context")

	if err := sess.MergeMetadata(map[string]any{"scripts": []any{"script-id-1", "script-id-2"}}); err != nil {
		t.Fatalf("MergeMetadata failed: %v", err)
	}
	sess.State = session.StateAwaitingApproval
	sess.CurrentStep = "Awaiting approval"
	sess.Progress = 75
	if err := store.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	fetched, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.State != session.StateAwaitingApproval || fetched.Progress != 75 {
		t.Fatalf("unexpected session after update: %#v", fetched)
	}
	meta, err := fetched.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	scripts, ok := meta["scripts"].([]any)
	if !ok || len(scripts) != 2 {
		t.Fatalf("unexpected scripts metadata: %#v", meta["scripts"])
	}
}

func TestListSessionsFiltersByState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		testsupport.NewSession(t, store, fmt.Sprintf("user-%d", i), "context")
	}
	done := testsupport.NewSession(t, store, "user-done", "context")
	done.State = session.StateCompleted
	done.Progress = 100
	if err := store.UpdateSession(ctx, done); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	all, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 sessions, got %d", len(all))
	}

	completed, err := store.ListSessions(ctx, session.StateCompleted)
	if err != nil {
		t.Fatalf("ListSessions filtered failed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Fatalf("unexpected filtered sessions: %#v", completed)
	}
}

func TestMarkStuckSessionsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	inFlight := testsupport.NewSession(t, store, "user-1", "context")
	inFlight.State = session.State(session.StepGenerateConcepts)
	if err := store.UpdateSession(ctx, inFlight); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	parked := testsupport.NewSession(t, store, "user-2", "context")
	parked.State = session.StateAwaitingApproval
	if err := store.UpdateSession(ctx, parked); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	count, err := store.MarkStuckSessionsFailed(ctx)
	if err != nil {
		t.Fatalf("MarkStuckSessionsFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stuck session, got %d", count)
	}

	updated, err := store.GetSession(ctx, inFlight.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if updated.State != session.StateError || updated.CurrentStep != session.DaemonRestartReason {
		t.Fatalf("unexpected stuck session after sweep: %#v", updated)
	}

	untouched, err := store.GetSession(ctx, parked.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if untouched.State != session.StateAwaitingApproval {
		t.Fatalf("approval gate session should be untouched, got %s", untouched.State)
	}
}

func TestAppendAndListLogs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	sess := testsupport.NewSession(t, store, "user-1", "context")

	first, err := store.AppendLog(ctx, &session.LogEntry{
		SessionID: sess.ID,
		StepName:  string(session.StepAnalyzeBrand),
		Status:    session.LogStatusStarted,
	})
	if err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected log id to be assigned")
	}

	if _, err := store.AppendLog(ctx, &session.LogEntry{
		SessionID:  sess.ID,
		StepName:   string(session.StepAnalyzeBrand),
		Status:     session.LogStatusCompleted,
		OutputJSON: `{"confidence":0.6}`,
		DurationMS: 12,
	}); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	entries, err := store.LogsForSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("LogsForSession failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Status != session.LogStatusStarted || entries[1].Status != session.LogStatusCompleted {
		t.Fatalf("unexpected log ordering: %#v", entries)
	}
	if entries[1].OutputJSON != `{"confidence":0.6}` {
		t.Fatalf("unexpected output payload: %q", entries[1].OutputJSON)
	}
}

func TestAppendLogValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.AppendLog(ctx, &session.LogEntry{StepName: "x", Status: "started"}); err == nil {
		t.Fatal("expected error when session id missing")
	}
	if _, err := store.AppendLog(ctx, &session.LogEntry{SessionID: "s", Status: "started"}); err == nil {
		t.Fatal("expected error when step name missing")
	}
}

func TestRecentMemoriesLimitAndOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		if _, err := store.AddMemory(ctx, &session.BrandMemory{
			UserID:  "user-1",
			Content: fmt.Sprintf("insight %d", i),
		}); err != nil {
			t.Fatalf("AddMemory failed: %v", err)
		}
	}
	if _, err := store.AddMemory(ctx, &session.BrandMemory{
		UserID:  "user-2",
		Content: "other user insight",
	}); err != nil {
		t.Fatalf("AddMemory failed: %v", err)
	}

	memories, err := store.RecentMemories(ctx, "user-1", 5)
	if err != nil {
		t.Fatalf("RecentMemories failed: %v", err)
	}
	if len(memories) != 5 {
		t.Fatalf("expected 5 memories, got %d", len(memories))
	}
	if memories[0].Content != "insight 7" {
		t.Fatalf("expected newest memory first, got %q", memories[0].Content)
	}
	for _, memory := range memories {
		if memory.UserID != "user-1" {
			t.Fatalf("unexpected user in results: %q", memory.UserID)
		}
	}
}

func TestSessionStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	active := testsupport.NewSession(t, store, "user-1", "context")
	_ = active

	done := testsupport.NewSession(t, store, "user-2", "context")
	done.State = session.StateCompleted
	if err := store.UpdateSession(ctx, done); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	gated := testsupport.NewSession(t, store, "user-3", "context")
	gated.State = session.StateAwaitingApproval
	if err := store.UpdateSession(ctx, gated); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	stats, err := store.SessionStats(ctx)
	if err != nil {
		t.Fatalf("SessionStats failed: %v", err)
	}
	if stats.Total != 3 || stats.Active != 1 || stats.Completed != 1 || stats.AwaitingApproval != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestParseState(t *testing.T) {
	cases := []struct {
		input string
		want  session.State
		ok    bool
	}{
		{"analyze_brand", session.State(session.StepAnalyzeBrand), true},
		{" Completed ", session.StateCompleted, true},
		{"awaiting_approval", session.StateAwaitingApproval, true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := session.ParseState(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseState(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
