// Package memorylog keeps a per-user markdown transcript of bot conversations.
package memorylog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

type Entry struct {
	Connector string
	UserID    string
	Action    string
	Direction string
	Text      string
	Timestamp time.Time
}

var pathSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type Writer struct {
	root string
	mu   sync.Mutex
}

func NewWriter(root string) *Writer {
	return &Writer{root: strings.TrimSpace(root)}
}

// Path returns the transcript file for a user, whether or not it exists yet.
func (w *Writer) Path(connector, userID string) string {
	return filepath.Join(w.root, "transcripts", orUnknown(sanitizeSegment(connector)), orUnknown(sanitizeSegment(userID))+".md")
}

func (w *Writer) Append(entry Entry) error {
	if w.root == "" {
		return nil
	}
	text := strings.TrimSpace(entry.Text)
	if text == "" {
		return nil
	}
	timestamp := entry.Timestamp.UTC()
	if entry.Timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	direction := strings.ToLower(strings.TrimSpace(entry.Direction))
	if direction == "" {
		direction = "inbound"
	}

	logPath := w.Path(entry.Connector, entry.UserID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	header := ""
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		header = fmt.Sprintf("# Job Agent Transcript\n\n- connector: `%s`\n- user: `%s`\n\n", strings.TrimSpace(entry.Connector), strings.TrimSpace(entry.UserID))
	}
	body := fmt.Sprintf("## %s %s", timestamp.Format(time.RFC3339), strings.ToUpper(direction))
	if action := strings.TrimSpace(entry.Action); action != "" {
		body += fmt.Sprintf(" `%s`", action)
	}
	body += "\n\n" + text + "\n\n"

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(header + body); err != nil {
		return err
	}
	return nil
}

func sanitizeSegment(value string) string {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), " ", "-")
	trimmed = pathSanitizer.ReplaceAllString(trimmed, "-")
	return strings.ToLower(strings.Trim(trimmed, "-."))
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
