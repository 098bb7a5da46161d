// Package main hosts the adloom CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon: starting agent runs, resolving script
// approvals, listing sessions, tailing event streams, and configuration
// scaffolding.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
