package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adloom/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected an error for unsupported format")
	}
}

func TestNewJSONWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("session created", slog.String(FieldSessionID, "sess-1"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "session created") {
		t.Fatalf("expected log message, got %q", content)
	}
	if !strings.Contains(content, "sess-1") {
		t.Fatalf("expected session id attribute, got %q", content)
	}
}

func TestNewSuppressesBelowLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{
		Level:            "warn",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("quiet message")
	logger.Warn("loud message")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "quiet message") {
		t.Fatal("expected info message to be suppressed")
	}
	if !strings.Contains(content, "loud message") {
		t.Fatal("expected warn message to be written")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithSessionID(context.Background(), "sess-42")
	ctx = services.WithStep(ctx, "generate_scripts")

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	byKey := make(map[string]string, len(fields))
	for _, attr := range fields {
		byKey[attr.Key] = attr.Value.String()
	}
	if byKey[FieldSessionID] != "sess-42" {
		t.Fatalf("unexpected session id %q", byKey[FieldSessionID])
	}
	if byKey[FieldStep] != "generate_scripts" {
		t.Fatalf("unexpected step %q", byKey[FieldStep])
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected a usable logger")
	}
	logger.Info("does not panic")
}
