package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/session"
)

func (s *Service) handleChat(ctx context.Context, current *session.Session, _ Intent) Result {
	if s.deps.Writer == nil {
		return fail(agenterr.External("chat", agenterr.ErrNotConfigured))
	}
	callCtx, cancel := s.externalContext(ctx)
	defer cancel()
	reply, err := s.deps.Writer.Chat(callCtx, current.RecentHistory(s.opts.ChatHistoryWindow), chatContext(current))
	if err != nil {
		return fail(agenterr.External("chat", err))
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = "I don't have anything useful to add yet. Try /search to find some jobs first."
	}
	return Result{
		Delta: session.Delta{
			History: []session.Turn{{Role: session.RoleAssistant, Content: reply, At: s.now()}},
		},
		Message: reply,
	}
}

func chatContext(current *session.Session) string {
	var b strings.Builder
	resume := current.Resume
	if !current.HasResume() {
		resume = "No resume uploaded."
	}
	fmt.Fprintf(&b, "Candidate's Resume:\n%s\n\n", resume)
	if len(current.Jobs) == 0 {
		b.WriteString("No jobs currently found in the session.")
		return b.String()
	}
	b.WriteString("Found Jobs:\n")
	for i, item := range current.Jobs {
		fmt.Fprintf(&b, "%d. %s at %s (%s)\n", i+1, item.Title, item.Company, item.Location)
	}
	return b.String()
}
