package gateway

import (
	"context"

	"github.com/dwizi/job-agent/internal/compose"
	"github.com/dwizi/job-agent/internal/jobs"
	"github.com/dwizi/job-agent/internal/session"
)

type JobSearcher interface {
	SearchJobs(ctx context.Context, keywords, location string) (jobs.SearchResult, error)
}

// QueryExpander returns related search terms, the original query first.
type QueryExpander interface {
	ExpandQuery(ctx context.Context, query string) ([]string, error)
}

type SecondarySource interface {
	Name() string
	SearchSecondary(ctx context.Context, keywords, location string) ([]jobs.Job, error)
}

type DocumentWriter interface {
	CustomizeResume(ctx context.Context, baseResume, jobDescription string) (string, error)
	CoverLetter(ctx context.Context, resume, jobDescription, company string) (string, error)
	Chat(ctx context.Context, history []session.Turn, contextText string) (string, error)
}

type DocumentComposer interface {
	Compose(ctx context.Context, request compose.Request) (string, error)
}

type ResumeParser interface {
	SupportedExtensions() []string
	Parse(data []byte, filename string) (string, error)
}

type ResumeStore interface {
	SaveResume(ctx context.Context, userID, filename, text string) error
}

type JobExporter interface {
	ExportJobs(ctx context.Context, items []jobs.Job) (int, error)
	TargetURL() string
}

// TranscriptWriter receives each finished exchange.
type TranscriptWriter interface {
	Append(entry TranscriptEntry) error
}

type TranscriptEntry struct {
	Connector string
	UserID    string
	Action    session.Action
	Inbound   string
	Reply     string
}
