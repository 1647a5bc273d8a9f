package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/jobs"
	"github.com/dwizi/job-agent/internal/session"
)

const (
	resumePreviewRunes      = 2000
	coverLetterPreviewRunes = 1500
)

// handleCustomize validates the selection, then generates both documents. The
// selection and the pair are committed together only when both calls succeed.
func (s *Service) handleCustomize(ctx context.Context, current *session.Session, intent Intent) Result {
	if intent.JobIndex == nil {
		return fail(agenterr.Usage(customizeUsage))
	}
	if len(current.Jobs) == 0 {
		return fail(agenterr.Precondition("❌ No jobs in search results. Use /search first."))
	}
	index := *intent.JobIndex
	if index < 0 || index >= len(current.Jobs) {
		return fail(agenterr.Validation(fmt.Sprintf("❌ Invalid job number. Please choose 1-%d.", len(current.Jobs))))
	}
	if !current.HasResume() {
		return fail(agenterr.Precondition("❌ No resume uploaded. Please send your resume file first with /resume."))
	}
	if s.deps.Writer == nil {
		return fail(agenterr.External("document generation", agenterr.ErrNotConfigured))
	}

	job := current.Jobs[index]
	description := jobs.Description(job)
	company := strings.TrimSpace(job.Company)
	if company == "" {
		company = "the company"
	}

	resumeCtx, cancelResume := s.externalContext(ctx)
	tailored, err := s.deps.Writer.CustomizeResume(resumeCtx, current.Resume, description)
	cancelResume()
	if err != nil {
		return fail(agenterr.External("resume customization", err))
	}
	letterCtx, cancelLetter := s.externalContext(ctx)
	letter, err := s.deps.Writer.CoverLetter(letterCtx, current.Resume, description, company)
	cancelLetter()
	if err != nil {
		return fail(agenterr.External("cover letter generation", err))
	}
	if strings.TrimSpace(tailored) == "" || strings.TrimSpace(letter) == "" {
		return fail(agenterr.External("document generation", fmt.Errorf("model returned an empty document")))
	}

	link := job.Link
	if link == "" {
		link = "N/A"
	}
	message := fmt.Sprintf(
		"✅ *Documents Generated for %s at %s*\n\n📄 *Customized Resume:*\n%s...\n\n📝 *Cover Letter:*\n%s...\n\n💡 Use /compose for a PDF or /export to save all jobs to Google Sheets.\n🔗 Apply here: %s\n",
		orUnknown(job.Title), orUnknown(job.Company),
		jobs.Truncate(tailored, resumePreviewRunes),
		jobs.Truncate(letter, coverLetterPreviewRunes),
		link,
	)
	return Result{
		Delta: session.Delta{
			SelectedJobIndex: session.Int(index),
			Documents:        &session.Documents{Resume: tailored, CoverLetter: letter, Job: job},
		},
		Message: message,
	}
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	return value
}
