package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dwizi/job-agent/internal/heartbeat"
)

// heartbeatNotifier appends degraded and recovered transitions to an ops log
// under the data dir.
type heartbeatNotifier struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func newHeartbeatNotifier(path string, logger *slog.Logger) *heartbeatNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &heartbeatNotifier{
		path:   strings.TrimSpace(path),
		logger: logger.With("component", "heartbeat-notifier"),
		now:    time.Now,
	}
}

func (n *heartbeatNotifier) HandleTransition(transition heartbeat.Transition) {
	if n == nil || n.path == "" {
		return
	}
	eventType := heartbeatTransitionType(transition)
	if eventType == "" {
		return
	}
	line := buildHeartbeatLogLine(eventType, transition, n.now().UTC())
	if err := n.append(line); err != nil {
		n.logger.Error("heartbeat log append failed", "path", n.path, "error", err)
	}
}

func heartbeatTransitionType(transition heartbeat.Transition) string {
	fromDegraded := isDegraded(transition.From)
	toDegraded := isDegraded(transition.To)
	switch {
	case !fromDegraded && toDegraded:
		return "degraded"
	case fromDegraded && transition.To == heartbeat.StateHealthy:
		return "recovered"
	default:
		return ""
	}
}

func isDegraded(state heartbeat.State) bool {
	return state == heartbeat.StateDegraded || state == heartbeat.StateStale
}

func buildHeartbeatLogLine(eventType string, transition heartbeat.Transition, at time.Time) string {
	line := fmt.Sprintf("- %s [%s] component=`%s` state=`%s -> %s`",
		at.Format(time.RFC3339),
		strings.ToUpper(eventType),
		strings.TrimSpace(transition.Component),
		transition.From,
		transition.To,
	)
	if detail := strings.TrimSpace(transition.Message); detail != "" {
		line += " detail=" + truncateSingleLine(detail, 240)
	}
	if errorText := strings.TrimSpace(transition.Error); errorText != "" {
		line += " error=" + truncateSingleLine(errorText, 240)
	}
	return line
}

func (n *heartbeatNotifier) append(line string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(n.path); os.IsNotExist(err) {
		if err := os.WriteFile(n.path, []byte("# Heartbeat Log\n\n"), 0o644); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(n.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(strings.TrimSpace(line) + "\n")
	return err
}

func truncateSingleLine(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
