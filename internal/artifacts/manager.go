// Package artifacts renders application PDFs, records them and expires them.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dwizi/job-agent/internal/compose"
	"github.com/dwizi/job-agent/internal/store"
)

type Records interface {
	RecordArtifact(ctx context.Context, input store.RecordArtifactInput) (store.Artifact, error)
	ListExpiredArtifacts(ctx context.Context, now time.Time, limit int) ([]store.Artifact, error)
	DeleteArtifact(ctx context.Context, id string) error
}

type Renderer interface {
	Render(request compose.Request) (string, error)
}

type Manager struct {
	renderer  Renderer
	records   Records
	mirror    Mirror
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewManager(renderer Renderer, records Records, mirror Mirror, retention time.Duration, logger *slog.Logger) *Manager {
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		renderer:  renderer,
		records:   records,
		mirror:    mirror,
		retention: retention,
		logger:    logger.With("component", "artifacts"),
		now:       time.Now,
	}
}

// Compose renders the PDF; bookkeeping failures are logged, the file is still returned.
func (m *Manager) Compose(ctx context.Context, request compose.Request) (string, error) {
	path, err := m.renderer.Render(request)
	if err != nil {
		return "", err
	}
	remoteKey := ""
	if m.mirror != nil {
		key := request.UserID + "/" + filepath.Base(path)
		if err := m.mirror.Upload(ctx, key, path); err != nil {
			m.logger.Warn("artifact mirror upload failed", "path", path, "error", err)
		} else {
			remoteKey = key
		}
	}
	if m.records != nil {
		_, err := m.records.RecordArtifact(ctx, store.RecordArtifactInput{
			UserID:    request.UserID,
			Kind:      "application_pdf",
			FilePath:  path,
			RemoteKey: remoteKey,
			Retention: m.retention,
		})
		if err != nil {
			m.logger.Warn("record artifact failed", "path", path, "error", err)
		}
	}
	return path, nil
}

// Sweep removes expired artifacts from disk, the mirror and the database.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if m.records == nil {
		return 0, nil
	}
	expired, err := m.records.ListExpiredArtifacts(ctx, m.now(), 200)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, artifact := range expired {
		if err := os.Remove(artifact.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", artifact.FilePath, err))
			continue
		}
		if m.mirror != nil && artifact.RemoteKey != "" {
			if err := m.mirror.Delete(ctx, artifact.RemoteKey); err != nil {
				m.logger.Warn("artifact mirror delete failed", "key", artifact.RemoteKey, "error", err)
			}
		}
		if err := m.records.DeleteArtifact(ctx, artifact.ID); err != nil && !errors.Is(err, store.ErrArtifactNotFound) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("expired artifacts removed", "count", removed)
	}
	return removed, errors.Join(errs...)
}
