// Package api defines the JSON payloads exchanged between the adloom
// daemon and its clients, plus an HTTP client used by the CLI.
package api
