package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddMemory appends one brand memory row for a user.
func (s *Store) AddMemory(ctx context.Context, memory *BrandMemory) (*BrandMemory, error) {
	if memory == nil {
		return nil, errors.New("memory is nil")
	}
	if strings.TrimSpace(memory.UserID) == "" {
		return nil, errors.New("memory user id required")
	}
	if strings.TrimSpace(memory.Content) == "" {
		return nil, errors.New("memory content required")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO brand_memories (user_id, session_id, content, embedding, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		memory.UserID,
		nullableString(memory.SessionID),
		memory.Content,
		nullableString(memory.EmbeddingJSON),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	inserted := *memory
	inserted.ID = id
	inserted.CreatedAt = now
	return &inserted, nil
}

// RecentMemories returns up to limit memories for a user, newest first.
func (s *Store) RecentMemories(ctx context.Context, userID string, limit int) ([]*BrandMemory, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, session_id, content, embedding, created_at
         FROM brand_memories WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var memories []*BrandMemory
	for rows.Next() {
		var (
			id         int64
			uid        string
			sessionID  sql.NullString
			content    string
			embedding  sql.NullString
			createdRaw sql.NullString
		)
		if err := rows.Scan(&id, &uid, &sessionID, &content, &embedding, &createdRaw); err != nil {
			return nil, err
		}
		memory := &BrandMemory{
			ID:            id,
			UserID:        uid,
			SessionID:     sessionID.String,
			Content:       content,
			EmbeddingJSON: embedding.String,
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			memory.CreatedAt = created
		}
		memories = append(memories, memory)
	}
	return memories, rows.Err()
}
