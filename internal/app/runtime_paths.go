package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dwizi/job-agent/internal/config"
)

func ensureDataDirs(cfg config.Config) error {
	dirs := []string{filepath.Dir(cfg.DBPath), cfg.ArtifactDir, cfg.TranscriptDir}
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func heartbeatLogPath(dataDir string) string {
	dataDir = strings.TrimSpace(dataDir)
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "ops", "heartbeat.md")
}
