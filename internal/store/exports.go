package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ExportRecord struct {
	ID        string
	TargetURL string
	JobCount  int
	CreatedAt time.Time
}

func (s *Store) RecordExport(ctx context.Context, targetURL string, jobCount int) error {
	if jobCount <= 0 {
		return fmt.Errorf("export job count must be positive")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO exports (id, target_url, job_count, created_at_unix) VALUES (?, ?, ?, ?)`,
		"exp_"+uuid.NewString(),
		strings.TrimSpace(targetURL),
		jobCount,
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	return nil
}

func (s *Store) ListExports(ctx context.Context, limit int) ([]ExportRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, target_url, job_count, created_at_unix FROM exports ORDER BY created_at_unix DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()
	var out []ExportRecord
	for rows.Next() {
		var (
			item        ExportRecord
			createdUnix int64
		)
		if err := rows.Scan(&item.ID, &item.TargetURL, &item.JobCount, &createdUnix); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		item.CreatedAt = time.Unix(createdUnix, 0).UTC()
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return out, nil
}
