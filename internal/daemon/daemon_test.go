package daemon

import (
	"context"
	"testing"

	"adloom/internal/logging"
	"adloom/internal/orchestrator"
	"adloom/internal/session"
	"adloom/internal/testsupport"
)

func TestDaemonStartEnforcesSingleInstance(t *testing.T) {
	td := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := td.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer td.daemon.Stop()

	if td.daemon.Addr() == "" {
		t.Fatal("expected a bound api address")
	}

	cfg := td.daemon.cfg
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := logging.NewStreamHub(16)
	orch := orchestrator.New(cfg, store, logger, hub, nil)
	second, err := New(cfg, store, logger, orch, hub)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail to start")
	}
}

func TestDaemonStartSweepsInterruptedSessions(t *testing.T) {
	td := newTestDaemon(t)

	stuck := testsupport.NewSession(t, td.store, "user-1", "brand")
	stuck.State = session.State(session.StepGenerateConcepts)
	if err := td.store.UpdateSession(context.Background(), stuck); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := td.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer td.daemon.Stop()

	swept, err := td.store.GetSession(context.Background(), stuck.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if swept.State != session.StateError {
		t.Fatalf("expected error state, got %s", swept.State)
	}

	status := td.daemon.Status(context.Background())
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Sessions.Error != 1 {
		t.Fatalf("expected 1 errored session, got %d", status.Sessions.Error)
	}
}
