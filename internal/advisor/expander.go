package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwizi/job-agent/internal/llm"
)

const maxVariations = 5

const expandPrompt = `You are a recruitment expert. Expand the job search query '%s' into 5 highly related but distinct job titles or search terms. They will be used to find a variety of relevant jobs.

Examples:
- "ML/AI" -> Python Developer, Data Scientist, LLM Engineer, Research Scientist, Computer Vision Engineer
- "Frontend" -> React Developer, Tailwind CSS Expert, UI/UX Engineer, Javascript Developer, Frontend Architect

Return ONLY a comma-separated list of the 5 titles. Do not include any other text.
Query: %s`

// Expander asks a model for related search terms.
type Expander struct {
	model llm.Completer
}

func NewExpander(model llm.Completer) *Expander {
	return &Expander{model: model}
}

// ExpandQuery returns at most five terms, the original query always first.
func (e *Expander) ExpandQuery(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if e.model == nil || query == "" {
		return []string{query}, nil
	}
	reply, err := e.model.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(expandPrompt, query, query)}},
	})
	if err != nil {
		return []string{query}, err
	}
	return parseVariations(query, reply), nil
}

func parseVariations(query, reply string) []string {
	out := []string{query}
	seen := map[string]bool{strings.ToLower(query): true}
	for _, part := range strings.Split(reply, ",") {
		term := strings.Trim(strings.TrimSpace(part), `"'.`)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, term)
		if len(out) >= maxVariations {
			break
		}
	}
	return out
}
