package services_test

import (
	"errors"
	"strings"
	"testing"

	"adloom/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "generate_videos", "submit", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generate_videos", "submit", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "analyze_brand", "load", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsClientError(t *testing.T) {
	if !services.IsClientError(services.Wrap(services.ErrValidation, "", "", "missing session id", nil)) {
		t.Fatal("validation errors are client errors")
	}
	if !services.IsClientError(services.Wrap(services.ErrNotFound, "", "", "no such session", nil)) {
		t.Fatal("not-found errors are client errors")
	}
	if services.IsClientError(services.Wrap(services.ErrExternalTool, "", "", "vendor down", nil)) {
		t.Fatal("external errors are not client errors")
	}
	if services.IsClientError(nil) {
		t.Fatal("nil is not a client error")
	}
}
