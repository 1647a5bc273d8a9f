package app

import (
	"errors"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/gateway"
	"github.com/dwizi/job-agent/internal/memorylog"
)

// transcriptLog splits one gateway exchange into inbound and outbound entries.
type transcriptLog struct {
	writer *memorylog.Writer
	now    func() time.Time
}

func newTranscriptLog(root string) *transcriptLog {
	return &transcriptLog{writer: memorylog.NewWriter(root), now: time.Now}
}

func (l *transcriptLog) Append(entry gateway.TranscriptEntry) error {
	at := l.now().UTC()
	base := memorylog.Entry{
		Connector: strings.ToLower(strings.TrimSpace(entry.Connector)),
		UserID:    strings.TrimSpace(entry.UserID),
		Action:    string(entry.Action),
		Timestamp: at,
	}
	inbound := base
	inbound.Direction = "inbound"
	inbound.Text = entry.Inbound
	outbound := base
	outbound.Direction = "outbound"
	outbound.Text = entry.Reply
	return errors.Join(l.writer.Append(inbound), l.writer.Append(outbound))
}
