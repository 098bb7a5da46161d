package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"adloom/internal/config"
)

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// CreateSession inserts a new session at the first workflow step.
func (s *Store) CreateSession(ctx context.Context, userID, brandContext string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id required")
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
            id, user_id, state, current_step, progress, brand_context,
            metadata, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		userID,
		State(StepAnalyzeBrand),
		"Queued",
		0,
		nullableString(brandContext),
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetSession(ctx, id)
}

// GetSession fetches a session by identifier. Missing sessions return nil.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// UpdateSession persists changes to an existing session. Writes are
// last-write-wins; there is no row versioning.
func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	sess.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions
         SET user_id = ?, state = ?, current_step = ?, progress = ?,
             brand_context = ?, metadata = ?, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		sess.UserID,
		sess.State,
		nullableString(sess.CurrentStep),
		sess.Progress,
		nullableString(sess.BrandContext),
		nullableString(sess.MetadataJSON),
		sess.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(sess.CompletedAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// ListSessions returns sessions filtered by state set (or all sessions when
// no state is provided), newest first.
func (s *Store) ListSessions(ctx context.Context, states ...State) ([]*Session, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + sessionColumns + ` FROM sessions`
	orderClause := ` ORDER BY created_at DESC`

	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		query := baseQuery + ` WHERE state IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// MarkStuckSessionsFailed moves sessions left mid-step by a previous daemon
// process into the error state. Sessions parked at the approval gate are
// untouched.
func (s *Store) MarkStuckSessionsFailed(ctx context.Context) (int64, error) {
	inFlight := []State{
		State(StepAnalyzeBrand),
		State(StepResearchCompetitors),
		State(StepAnalyzeTrends),
		State(StepGenerateConcepts),
		State(StepGenerateScripts),
		State(StepGenerateVideos),
		State(StepUpdateMemory),
	}
	placeholders := makePlaceholders(len(inFlight))
	args := make([]any, 0, len(inFlight)+3)
	args = append(args, StateError, DaemonRestartReason, time.Now().UTC().Format(time.RFC3339Nano))
	for _, state := range inFlight {
		args = append(args, state)
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions
         SET state = ?, current_step = ?, updated_at = ?
         WHERE state IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark stuck sessions: %w", err)
	}
	return res.RowsAffected()
}

// SessionStats returns aggregated session counts.
func (s *Store) SessionStats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM sessions GROUP BY state`)
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{}
	for rows.Next() {
		var state State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch state {
		case StateAwaitingApproval:
			stats.AwaitingApproval += count
		case StateCompleted:
			stats.Completed += count
		case StateError:
			stats.Error += count
		case StateCancelled:
			stats.Cancelled += count
		default:
			if state.IsInFlight() {
				stats.Active += count
			}
		}
	}
	return stats, rows.Err()
}

const sessionColumns = "id, user_id, state, current_step, progress, brand_context, metadata, created_at, updated_at, completed_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id           string
		userID       string
		stateStr     string
		currentStep  sql.NullString
		progress     sql.NullInt64
		brandContext sql.NullString
		metadata     sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&stateStr,
		&currentStep,
		&progress,
		&brandContext,
		&metadata,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:           id,
		UserID:       userID,
		State:        State(stateStr),
		CurrentStep:  currentStep.String,
		Progress:     int(progress.Int64),
		BrandContext: brandContext.String,
		MetadataJSON: metadata.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		sess.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		sess.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			sess.CompletedAt = &completed
		}
	}
	return sess, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
