package logging

import (
	"context"
	"testing"
	"time"
)

func TestStreamHubPublishAssignsSequences(t *testing.T) {
	hub := NewStreamHub(16)
	hub.Publish(Event{Type: EventStepStarted, Message: "first"})
	hub.Publish(Event{Type: EventStepCompleted, Message: "second"})
	hub.Publish(Event{Type: EventStepStarted, Message: "third"})

	events, next := hub.Tail(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, evt := range events {
		if evt.Sequence != uint64(i+1) {
			t.Fatalf("expected sequence %d, got %d", i+1, evt.Sequence)
		}
		if evt.Timestamp.IsZero() {
			t.Fatal("expected a timestamp to be stamped")
		}
	}
	if next != 3 {
		t.Fatalf("expected cursor 3, got %d", next)
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(16)
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Type: EventStepStarted})
	}

	events, next, err := hub.Fetch(context.Background(), 2, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Sequence != 3 {
		t.Fatalf("expected first sequence 3, got %d", events[0].Sequence)
	}
	if next != 5 {
		t.Fatalf("expected cursor 5, got %d", next)
	}

	caughtUp, _, err := hub.Fetch(context.Background(), next, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(caughtUp) != 0 {
		t.Fatalf("expected no events past the cursor, got %d", len(caughtUp))
	}
}

func TestStreamHubLimitedFetchResumesWithoutSkipping(t *testing.T) {
	hub := NewStreamHub(16)
	for i := 0; i < 5; i++ {
		hub.Publish(Event{Type: EventStepStarted})
	}

	first, next, err := hub.Fetch(context.Background(), 0, 2, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 events, got %d", len(first))
	}
	if next != 2 {
		t.Fatalf("expected cursor at last delivered sequence 2, got %d", next)
	}

	rest, next, err := hub.Fetch(context.Background(), next, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("expected the remaining 3 events, got %d", len(rest))
	}
	if rest[0].Sequence != 3 || next != 5 {
		t.Fatalf("expected resume at sequence 3 through 5, got first=%d cursor=%d", rest[0].Sequence, next)
	}
}

func TestStreamHubFetchWaitsForPublish(t *testing.T) {
	hub := NewStreamHub(16)

	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Publish(Event{Type: EventSessionUpdated, Message: "woke"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, _, err := hub.Fetch(ctx, 0, 10, true)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Message != "woke" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestStreamHubFetchHonorsContextCancel(t *testing.T) {
	hub := NewStreamHub(16)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := hub.Fetch(ctx, 0, 10, true)
	if err == nil {
		t.Fatal("expected a context error")
	}
}

func TestStreamHubEvictsOldestAtCapacity(t *testing.T) {
	hub := NewStreamHub(4)
	for i := 0; i < 6; i++ {
		hub.Publish(Event{Type: EventStepStarted})
	}

	if first := hub.FirstSequence(); first != 3 {
		t.Fatalf("expected first sequence 3, got %d", first)
	}
	events, _ := hub.Tail(10)
	if len(events) != 4 {
		t.Fatalf("expected 4 buffered events, got %d", len(events))
	}
	if events[len(events)-1].Sequence != 6 {
		t.Fatalf("expected newest sequence 6, got %d", events[len(events)-1].Sequence)
	}
}

func TestStreamHubNilSafe(t *testing.T) {
	var hub *StreamHub
	hub.Publish(Event{Type: EventStepStarted})
	if events, _, err := hub.Fetch(context.Background(), 0, 10, false); err != nil || len(events) != 0 {
		t.Fatalf("unexpected fetch result: %v %v", events, err)
	}
	if events, _ := hub.Tail(5); len(events) != 0 {
		t.Fatalf("unexpected tail result: %v", events)
	}
}
