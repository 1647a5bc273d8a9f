package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/jobs"
	"github.com/dwizi/job-agent/internal/session"
)

// handleSearch stores the parsed query even when the search itself fails so
// /more can reuse it. The jobs list is only replaced on success.
func (s *Service) handleSearch(ctx context.Context, _ *session.Session, intent Intent) Result {
	delta := session.Delta{
		SearchQuery: session.String(intent.Keywords),
		Location:    session.String(intent.Location),
	}
	if s.deps.Searcher == nil {
		return failKeeping(delta, agenterr.External("job search", agenterr.ErrNotConfigured))
	}

	callCtx, cancel := s.externalContext(ctx)
	defer cancel()
	found, err := s.deps.Searcher.SearchJobs(callCtx, intent.Keywords, intent.Location)
	if err != nil {
		return failKeeping(delta, agenterr.External("job search", err))
	}

	top := found.Jobs
	if len(top) > s.opts.SearchMaxResults {
		top = top[:s.opts.SearchMaxResults]
	}
	delta.ReplaceJobs = true
	delta.Jobs = top

	if len(top) == 0 {
		return Result{
			Delta:   delta,
			Message: fmt.Sprintf("🔍 No jobs found for '%s' in '%s'.\nTry different keywords or location.", intent.Keywords, intent.Location),
		}
	}

	total := found.TotalCount
	if total < len(top) {
		total = len(top)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Found %d recent jobs for '%s' in '%s':*\n\n", total, intent.Keywords, intent.Location)
	for i, item := range top {
		b.WriteString(jobs.Format(i+1, item))
		b.WriteString("\n")
	}
	b.WriteString("\n💡 Reply with /customize <number> to customize your resume for a job.")
	return Result{Delta: delta, Message: b.String()}
}
