package session

import (
	"github.com/dwizi/job-agent/internal/jobs"
)

// Documents are generated and stored as a pair.
type Documents struct {
	Resume      string
	CoverLetter string
	Job         jobs.Job
}

// Delta is a sparse update produced by a handler. Nil and zero fields leave
// the session untouched; History is always appended.
type Delta struct {
	Resume      *string
	SearchQuery *string
	Location    *string

	// ReplaceJobs swaps the whole list for Jobs and drops the selection.
	ReplaceJobs bool
	Jobs        []jobs.Job
	AppendJobs  []jobs.Job

	SelectedJobIndex     *int
	Documents            *Documents
	ComposedArtifactPath *string
	Export               *ExportStatus
	History              []Turn
}

func (d Delta) Empty() bool {
	return d.Resume == nil &&
		d.SearchQuery == nil &&
		d.Location == nil &&
		!d.ReplaceJobs &&
		len(d.AppendJobs) == 0 &&
		d.SelectedJobIndex == nil &&
		d.Documents == nil &&
		d.ComposedArtifactPath == nil &&
		d.Export == nil &&
		len(d.History) == 0
}

// Apply merges d into the session.
func (s *Session) Apply(d Delta) {
	if d.Resume != nil {
		s.Resume = *d.Resume
	}
	if d.SearchQuery != nil {
		s.SearchQuery = *d.SearchQuery
	}
	if d.Location != nil {
		s.Location = *d.Location
	}
	if d.ReplaceJobs {
		s.Jobs = append([]jobs.Job(nil), d.Jobs...)
		s.SelectedJobIndex = nil
	}
	if len(d.AppendJobs) > 0 {
		seen := jobs.NewLinkSet(s.Jobs)
		for _, item := range d.AppendJobs {
			if seen.Has(item.Link) {
				continue
			}
			seen.Add(item.Link)
			s.Jobs = append(s.Jobs, item)
		}
	}
	if d.SelectedJobIndex != nil {
		index := *d.SelectedJobIndex
		s.SelectedJobIndex = &index
	}
	if d.Documents != nil {
		s.CustomizedResume = d.Documents.Resume
		s.CoverLetter = d.Documents.CoverLetter
		job := d.Documents.Job
		s.SelectedJob = &job
	}
	if d.ComposedArtifactPath != nil {
		s.ComposedArtifactPath = *d.ComposedArtifactPath
	}
	if d.Export != nil {
		s.Export = *d.Export
	}
	if len(d.History) > 0 {
		s.History = append(s.History, d.History...)
	}
}

func String(value string) *string {
	return &value
}

func Int(value int) *int {
	return &value
}
