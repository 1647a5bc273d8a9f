package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrResumeInvalid = errors.New("resume input is invalid")

// SaveResume keeps one résumé per user; a new upload replaces the old text.
func (s *Store) SaveResume(ctx context.Context, userID, filename, text string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(text) == "" {
		return ErrResumeInvalid
	}
	nowUnix := time.Now().UTC().Unix()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO resumes (user_id, filename, content, created_at_unix, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			filename = excluded.filename,
			content = excluded.content,
			updated_at_unix = excluded.updated_at_unix`,
		userID,
		strings.TrimSpace(filename),
		text,
		nowUnix,
		nowUnix,
	)
	if err != nil {
		return fmt.Errorf("upsert resume: %w", err)
	}
	return nil
}

func (s *Store) LoadResume(ctx context.Context, userID string) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM resumes WHERE user_id = ?`, strings.TrimSpace(userID)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load resume: %w", err)
	}
	return content, true, nil
}
