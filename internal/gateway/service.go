package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/session"
)

type Candidate struct {
	Name     string
	Email    string
	Phone    string
	Location string
}

type Options struct {
	DefaultLocation   string
	SearchMaxResults  int
	MoreStopSearchAt  int
	MoreAppendCap     int
	ExternalTimeout   time.Duration
	ChatHistoryWindow int
	Candidate         Candidate
}

type Dependencies struct {
	Sessions       *session.Store
	Searcher       JobSearcher
	Expander       QueryExpander
	DirectSources  []SecondarySource
	VarietySources []SecondarySource
	Writer         DocumentWriter
	Composer       DocumentComposer
	Parser         ResumeParser
	Resumes        ResumeStore
	Exporter       JobExporter
	Transcript     TranscriptWriter
}

type Service struct {
	deps    Dependencies
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
	actions map[session.Action]handlerFunc
}

type MessageInput struct {
	Connector   string
	UserID      string
	DisplayName string
	Text        string
}

type MessageOutput struct {
	Handled      bool
	Reply        string
	ArtifactPath string
	Action       session.Action
	ErrorKind    agenterr.Kind
}

// Result is what a handler hands back to the dispatcher.
type Result struct {
	Delta    session.Delta
	Message  string
	Artifact string
	Err      *agenterr.Error
}

type handlerFunc func(ctx context.Context, current *session.Session, intent Intent) Result

func New(deps Dependencies, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(nil, logger)
	}
	opts = withDefaults(opts)
	s := &Service{
		deps:   deps,
		opts:   opts,
		logger: logger.With("component", "gateway"),
		now:    time.Now,
	}
	s.actions = map[session.Action]handlerFunc{
		session.ActionSearch:    s.handleSearch,
		session.ActionCustomize: s.handleCustomize,
		session.ActionExport:    s.handleExport,
		session.ActionChat:      s.handleChat,
		session.ActionFetchMore: s.handleFetchMore,
		session.ActionCompose:   s.handleCompose,
		session.ActionHelp:      s.handleHelp,
		session.ActionStart:     s.handleHelp,
	}
	return s
}

func withDefaults(opts Options) Options {
	if strings.TrimSpace(opts.DefaultLocation) == "" {
		opts.DefaultLocation = "remote"
	}
	if opts.SearchMaxResults <= 0 {
		opts.SearchMaxResults = 10
	}
	if opts.MoreStopSearchAt <= 0 {
		opts.MoreStopSearchAt = 15
	}
	if opts.MoreAppendCap <= 0 {
		opts.MoreAppendCap = 20
	}
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = 45 * time.Second
	}
	if opts.ChatHistoryWindow <= 0 {
		opts.ChatHistoryWindow = 20
	}
	return opts
}

func (s *Service) Sessions() *session.Store {
	return s.deps.Sessions
}

// HandleMessage runs one turn for the sender. The returned error is only set
// when the turn could not start (missing user id or ctx ended while waiting).
func (s *Service) HandleMessage(ctx context.Context, input MessageInput) (MessageOutput, error) {
	logger := s.logger.With("turn_id", uuid.NewString(), "user_id", input.UserID, "connector", input.Connector)
	text := strings.TrimSpace(input.Text)

	var output MessageOutput
	err := s.deps.Sessions.Do(ctx, input.UserID, func(current *session.Session) error {
		if text != "" {
			current.AppendTurn(session.RoleUser, text, s.now())
		}
		intent := ParseIntent(text, s.opts.DefaultLocation)
		started := s.now()
		result := s.dispatch(ctx, logger, current.Clone(), intent)
		current.Apply(result.Delta)
		current.CurrentAction = intent.Action
		current.LastResponse = result.Message
		current.LastError = result.Err

		output = MessageOutput{
			Handled:      true,
			Reply:        result.Message,
			ArtifactPath: result.Artifact,
			Action:       intent.Action,
		}
		if result.Err != nil {
			output.ErrorKind = result.Err.Kind
			logger.Warn("turn failed",
				"action", intent.Action,
				"kind", result.Err.Kind,
				"detail", result.Err.Detail,
				"duration_ms", time.Since(started).Milliseconds(),
			)
		} else {
			logger.Info("turn handled",
				"action", intent.Action,
				"inbound", compactSnippet(text),
				"duration_ms", time.Since(started).Milliseconds(),
			)
		}
		return nil
	})
	if err != nil {
		return MessageOutput{}, err
	}
	s.appendTranscript(logger, input, output)
	return output, nil
}

// dispatch runs exactly one handler against a copy of the session. A
// panicking handler produces an internal error and no state change.
func (s *Service) dispatch(ctx context.Context, logger *slog.Logger, current *session.Session, intent Intent) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("handler panic", "action", intent.Action, "panic", recovered, "stack", string(debug.Stack()))
			result = fail(agenterr.Internal(fmt.Sprint(recovered)))
		}
	}()
	handler, ok := s.actions[intent.Action]
	if !ok {
		handler = s.handleHelp
	}
	return handler(ctx, current, intent)
}

func (s *Service) handleHelp(_ context.Context, _ *session.Session, intent Intent) Result {
	reply := intent.Reply
	if reply == "" {
		reply = helpText
	}
	if intent.Usage {
		return Result{Message: reply, Err: agenterr.Usage(reply)}
	}
	return Result{Message: reply}
}

func (s *Service) externalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.ExternalTimeout)
}

func (s *Service) appendTranscript(logger *slog.Logger, input MessageInput, output MessageOutput) {
	if s.deps.Transcript == nil {
		return
	}
	err := s.deps.Transcript.Append(TranscriptEntry{
		Connector: input.Connector,
		UserID:    input.UserID,
		Action:    output.Action,
		Inbound:   input.Text,
		Reply:     output.Reply,
	})
	if err != nil {
		logger.Warn("transcript append failed", "error", err)
	}
}

func fail(err *agenterr.Error) Result {
	return Result{Message: err.UserText(), Err: err}
}

// failKeeping reports err while still committing the parts of delta that
// were settled before the failing call.
func failKeeping(delta session.Delta, err *agenterr.Error) Result {
	return Result{Delta: delta, Message: err.UserText(), Err: err}
}

func compactSnippet(input string) string {
	text := strings.TrimSpace(input)
	if text == "" {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= 120 {
		return text
	}
	return string(runes[:120]) + "..."
}
