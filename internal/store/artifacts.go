package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrArtifactNotFound = errors.New("artifact not found")

type Artifact struct {
	ID        string
	UserID    string
	Kind      string
	FilePath  string
	RemoteKey string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type RecordArtifactInput struct {
	UserID    string
	Kind      string
	FilePath  string
	RemoteKey string
	Retention time.Duration
}

func (s *Store) RecordArtifact(ctx context.Context, input RecordArtifactInput) (Artifact, error) {
	userID := strings.TrimSpace(input.UserID)
	filePath := strings.TrimSpace(input.FilePath)
	if userID == "" || filePath == "" {
		return Artifact{}, fmt.Errorf("artifact user and path are required")
	}
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		kind = "application_pdf"
	}
	retention := input.Retention
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	now := time.Now().UTC()
	artifact := Artifact{
		ID:        "art_" + uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		FilePath:  filePath,
		RemoteKey: strings.TrimSpace(input.RemoteKey),
		CreatedAt: now,
		ExpiresAt: now.Add(retention),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO artifacts (id, user_id, kind, file_path, remote_key, created_at_unix, expires_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID,
		artifact.UserID,
		artifact.Kind,
		artifact.FilePath,
		nullIfEmpty(artifact.RemoteKey),
		artifact.CreatedAt.Unix(),
		artifact.ExpiresAt.Unix(),
	)
	if err != nil {
		return Artifact{}, fmt.Errorf("insert artifact: %w", err)
	}
	return artifact, nil
}

func (s *Store) ListExpiredArtifacts(ctx context.Context, now time.Time, limit int) ([]Artifact, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, kind, file_path, COALESCE(remote_key, ''), created_at_unix, expires_at_unix
		 FROM artifacts
		 WHERE expires_at_unix <= ?
		 ORDER BY expires_at_unix ASC
		 LIMIT ?`,
		now.UTC().Unix(),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired artifacts: %w", err)
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func (s *Store) ListArtifacts(ctx context.Context, userID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, kind, file_path, COALESCE(remote_key, ''), created_at_unix, expires_at_unix
		 FROM artifacts
		 WHERE user_id = ?
		 ORDER BY created_at_unix DESC`,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func (s *Store) DeleteArtifact(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete artifact rows: %w", err)
	}
	if affected == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

func scanArtifacts(rows *sql.Rows) ([]Artifact, error) {
	var out []Artifact
	for rows.Next() {
		var item Artifact
		var createdUnix, expUnix int64
		if err := rows.Scan(&item.ID, &item.UserID, &item.Kind, &item.FilePath, &item.RemoteKey, &createdUnix, &expUnix); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		item.CreatedAt = time.Unix(createdUnix, 0).UTC()
		item.ExpiresAt = time.Unix(expUnix, 0).UTC()
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}
