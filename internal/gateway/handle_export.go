package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/session"
)

func (s *Service) handleExport(ctx context.Context, current *session.Session, _ Intent) Result {
	if len(current.Jobs) == 0 {
		return fail(agenterr.Precondition("❌ No jobs to export. Use /search first to find jobs."))
	}
	if s.deps.Exporter == nil {
		return fail(agenterr.External("Google Sheets export", agenterr.ErrNotConfigured))
	}

	callCtx, cancel := s.externalContext(ctx)
	defer cancel()
	count, err := s.deps.Exporter.ExportJobs(callCtx, current.Jobs)
	if err != nil {
		failure := agenterr.External("Google Sheets export", err)
		failure.Message += "\n\n💡 Ensure your sheet is shared as 'Editor' with the service account email."
		return fail(failure)
	}
	if count == 0 {
		return fail(&agenterr.Error{
			Kind: agenterr.KindExternal,
			Message: fmt.Sprintf("❌ Failed to export jobs. Found %d jobs in session, but could not write to sheet. "+
				"Check your Google Sheets permissions and tab name ('Jobs').", len(current.Jobs)),
			Err: errors.New("no rows written"),
		})
	}

	url := s.deps.Exporter.TargetURL()
	message := fmt.Sprintf("✅ *Exported %d jobs to Google Sheets!*\n\n📊 [Open your spreadsheet](%s)\n\n"+
		"💡 Data was inserted at the top of the sheet (Row 2) in the 'Jobs' tab.", count, url)
	return Result{
		Delta:   session.Delta{Export: &session.ExportStatus{Exported: true, URL: url}},
		Message: message,
	}
}
