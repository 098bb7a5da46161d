package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppendLog inserts one execution log row. Rows are never mutated or
// deleted afterwards.
func (s *Store) AppendLog(ctx context.Context, entry *LogEntry) (*LogEntry, error) {
	if entry == nil {
		return nil, errors.New("log entry is nil")
	}
	if strings.TrimSpace(entry.SessionID) == "" {
		return nil, errors.New("log entry session id required")
	}
	if strings.TrimSpace(entry.StepName) == "" {
		return nil, errors.New("log entry step name required")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO execution_log (
            session_id, step_name, status, tool_name, input_data,
            output_data, error_message, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.StepName,
		entry.Status,
		nullableString(entry.ToolName),
		nullableString(entry.InputJSON),
		nullableString(entry.OutputJSON),
		nullableString(entry.ErrorMessage),
		entry.DurationMS,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("append log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	inserted := *entry
	inserted.ID = id
	inserted.CreatedAt = now
	return &inserted, nil
}

// LogsForSession returns all execution log rows for a session in append
// order.
func (s *Store) LogsForSession(ctx context.Context, sessionID string) ([]*LogEntry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, step_name, status, tool_name, input_data,
                output_data, error_message, duration_ms, created_at
         FROM execution_log WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanLogEntry(scanner interface{ Scan(dest ...any) error }) (*LogEntry, error) {
	var (
		id           int64
		sessionID    string
		stepName     string
		status       string
		toolName     sql.NullString
		inputData    sql.NullString
		outputData   sql.NullString
		errorMessage sql.NullString
		durationMS   sql.NullInt64
		createdRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&stepName,
		&status,
		&toolName,
		&inputData,
		&outputData,
		&errorMessage,
		&durationMS,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	entry := &LogEntry{
		ID:           id,
		SessionID:    sessionID,
		StepName:     stepName,
		Status:       status,
		ToolName:     toolName.String,
		InputJSON:    inputData.String,
		OutputJSON:   outputData.String,
		ErrorMessage: errorMessage.String,
		DurationMS:   durationMS.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}
