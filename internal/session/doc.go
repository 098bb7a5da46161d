// Package session persists workflow runs in SQLite: the sessions table,
// the append-only execution log, and user-scoped brand memories.
//
// Timestamps are stored as RFC3339Nano text and the database runs in WAL
// mode with a busy timeout. Schema changes ship as embedded migrations
// applied on open.
package session
