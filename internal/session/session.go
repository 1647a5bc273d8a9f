package session

import (
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/jobs"
)

type Action string

const (
	ActionSearch    Action = "search"
	ActionCustomize Action = "customize"
	ActionExport    Action = "export"
	ActionChat      Action = "chat"
	ActionFetchMore Action = "fetchMore"
	ActionCompose   Action = "compose"
	ActionHelp      Action = "help"
	ActionStart     Action = "start"
	ActionNone      Action = "none"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type ExportStatus struct {
	Exported bool   `json:"exported"`
	URL      string `json:"url,omitempty"`
}

// Session is the per-user conversation record. Only the store hands out
// mutable sessions, and only while the user's lock is held.
type Session struct {
	UserID               string
	Resume               string
	SearchQuery          string
	Location             string
	Jobs                 []jobs.Job
	SelectedJobIndex     *int
	SelectedJob          *jobs.Job
	CustomizedResume     string
	CoverLetter          string
	ComposedArtifactPath string
	Export               ExportStatus
	History              []Turn

	CurrentAction Action
	LastResponse  string
	LastError     *agenterr.Error
}

func New(userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, agenterr.ErrEmptyUserID
	}
	return &Session{UserID: userID}, nil
}

// SelectedIndex returns the selected job index when it still points into Jobs.
func (s *Session) SelectedIndex() (int, bool) {
	if s.SelectedJobIndex == nil {
		return 0, false
	}
	index := *s.SelectedJobIndex
	if index < 0 || index >= len(s.Jobs) {
		return 0, false
	}
	return index, true
}

func (s *Session) HasResume() bool {
	return strings.TrimSpace(s.Resume) != ""
}

func (s *Session) HasDocuments() bool {
	return strings.TrimSpace(s.CustomizedResume) != "" && strings.TrimSpace(s.CoverLetter) != ""
}

func (s *Session) AppendTurn(role, content string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Content: content, At: at})
}

// RecentHistory returns at most limit trailing turns.
func (s *Session) RecentHistory(limit int) []Turn {
	if limit <= 0 || len(s.History) <= limit {
		return append([]Turn(nil), s.History...)
	}
	return append([]Turn(nil), s.History[len(s.History)-limit:]...)
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Jobs = append([]jobs.Job(nil), s.Jobs...)
	out.History = append([]Turn(nil), s.History...)
	if s.SelectedJobIndex != nil {
		index := *s.SelectedJobIndex
		out.SelectedJobIndex = &index
	}
	if s.SelectedJob != nil {
		job := *s.SelectedJob
		out.SelectedJob = &job
	}
	if s.LastError != nil {
		lastErr := *s.LastError
		out.LastError = &lastErr
	}
	return &out
}
