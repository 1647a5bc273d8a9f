package gateway

import (
	"context"
	"errors"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/compose"
	"github.com/dwizi/job-agent/internal/session"
)

func (s *Service) handleCompose(ctx context.Context, current *session.Session, _ Intent) Result {
	if !current.HasDocuments() {
		return fail(agenterr.Precondition("❌ No customized resume or cover letter found. Please use /customize first."))
	}
	if s.deps.Composer == nil {
		return fail(agenterr.External("PDF composition", agenterr.ErrNotConfigured))
	}

	candidate := s.opts.Candidate
	request := compose.Request{
		UserID:      current.UserID,
		Name:        compose.CandidateName(current.CustomizedResume, candidate.Name),
		Email:       candidate.Email,
		Phone:       candidate.Phone,
		Location:    candidate.Location,
		Resume:      current.CustomizedResume,
		CoverLetter: current.CoverLetter,
	}
	if current.SelectedJob != nil {
		request.JobTitle = current.SelectedJob.Title
		request.Company = current.SelectedJob.Company
	}

	callCtx, cancel := s.externalContext(ctx)
	defer cancel()
	path, err := s.deps.Composer.Compose(callCtx, request)
	if err != nil {
		return fail(agenterr.External("PDF composition", err))
	}
	if path == "" {
		return fail(agenterr.External("PDF composition", errors.New("no file was produced")))
	}
	return Result{
		Delta:    session.Delta{ComposedArtifactPath: session.String(path)},
		Message:  "✨ *Professional Job Application Composed!*\n\nI've combined your customized resume and cover letter into one PDF. Sending the file to you now...",
		Artifact: path,
	}
}
