package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/jobs"
	"github.com/dwizi/job-agent/internal/session"
)

// moreCollector accumulates postings from secondary sources, skipping links
// already present in the session or collected earlier in the same turn.
type moreCollector struct {
	seen     jobs.LinkSet
	found    []jobs.Job
	limit    int
	attempts int
	errs     []error
}

func (c *moreCollector) add(items []jobs.Job) {
	for _, item := range items {
		if len(c.found) >= c.limit {
			return
		}
		if strings.TrimSpace(item.Link) == "" || c.seen.Has(item.Link) {
			continue
		}
		c.seen.Add(item.Link)
		c.found = append(c.found, item)
	}
}

func (s *Service) handleFetchMore(ctx context.Context, current *session.Session, _ Intent) Result {
	query, location := current.SearchQuery, current.Location
	var delta session.Delta
	if strings.TrimSpace(query) == "" {
		recovered, recoveredLocation, ok := lastSearchFromHistory(current.History, s.opts.DefaultLocation)
		if !ok {
			return fail(agenterr.Precondition("❌ No previous search found. Please use /search first."))
		}
		query, location = recovered, recoveredLocation
		delta.SearchQuery = session.String(query)
		delta.Location = session.String(location)
	}
	if strings.TrimSpace(location) == "" {
		location = s.opts.DefaultLocation
	}
	if len(s.deps.DirectSources) == 0 && len(s.deps.VarietySources) == 0 {
		return failKeeping(delta, agenterr.External("extra job search", agenterr.ErrNotConfigured))
	}

	variations := s.expandQuery(ctx, query)
	collector := &moreCollector{seen: jobs.NewLinkSet(current.Jobs), limit: s.opts.MoreAppendCap}

	for _, source := range s.deps.DirectSources {
		s.searchSource(ctx, collector, source, query, location)
	}
	for _, variation := range variations {
		if len(collector.found) >= s.opts.MoreStopSearchAt {
			break
		}
		for _, source := range s.deps.VarietySources {
			s.searchSource(ctx, collector, source, variation, location)
		}
	}

	if len(collector.found) == 0 {
		if collector.attempts > 0 && len(collector.errs) == collector.attempts {
			return failKeeping(delta, agenterr.External("extra job search", errors.Join(collector.errs...)))
		}
		return Result{
			Delta:   delta,
			Message: fmt.Sprintf("🔍 No additional recent jobs found for '%s' or related fields.", query),
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚀 *Smart Variety Search for '%s':*\n", query)
	if extra := alsoSearched(variations); extra != "" {
		fmt.Fprintf(&b, "💡 Also searched for: _%s_\n", extra)
	}
	b.WriteString("\n")
	start := len(current.Jobs) + 1
	for i, item := range collector.found {
		b.WriteString(jobs.FormatBrief(start+i, item))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "✅ Found %d extra jobs! Use /customize <number> to pick one.", len(collector.found))

	delta.AppendJobs = collector.found
	return Result{Delta: delta, Message: b.String()}
}

func (s *Service) searchSource(ctx context.Context, collector *moreCollector, source SecondarySource, keywords, location string) {
	collector.attempts++
	callCtx, cancel := s.externalContext(ctx)
	defer cancel()
	items, err := source.SearchSecondary(callCtx, keywords, location)
	if err != nil {
		collector.errs = append(collector.errs, fmt.Errorf("%s: %w", source.Name(), err))
		s.logger.Warn("secondary source failed", "source", source.Name(), "keywords", keywords, "error", err)
		return
	}
	collector.add(items)
}

// expandQuery never fails: any expander problem degrades to the query alone.
func (s *Service) expandQuery(ctx context.Context, query string) []string {
	if s.deps.Expander == nil {
		return []string{query}
	}
	callCtx, cancel := s.externalContext(ctx)
	defer cancel()
	variations, err := s.deps.Expander.ExpandQuery(callCtx, query)
	if err != nil {
		s.logger.Warn("query expansion failed", "query", query, "error", err)
		return []string{query}
	}
	out := make([]string, 0, len(variations)+1)
	out = append(out, query)
	for _, variation := range variations {
		variation = strings.TrimSpace(variation)
		if variation == "" || strings.EqualFold(variation, query) {
			continue
		}
		out = append(out, variation)
	}
	return out
}

func alsoSearched(variations []string) string {
	if len(variations) <= 1 {
		return ""
	}
	end := len(variations)
	if end > 4 {
		end = 4
	}
	return strings.Join(variations[1:end], ", ")
}
