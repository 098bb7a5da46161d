// Package steps implements one handler per workflow step. Handlers that
// front a vendor API fall back to deterministic simulated payloads when the
// vendor is not configured, keeping the full workflow runnable without
// credentials.
package steps
