// Package logging centralizes slog construction and the event stream hub.
//
// It owns handler setup (console and JSON output, multi-writer file
// mirroring), standardized field keys for session/step correlation, and
// context-derived attribute extraction so every component logs the same
// shape. The StreamHub is the in-process fan-out buffer that feeds SSE
// subscribers with workflow events.
package logging
