// Package daemon runs the adloom background service: a single-instance
// lock, startup recovery of interrupted sessions, and the local HTTP API
// the CLI talks to, including SSE event streams.
package daemon
