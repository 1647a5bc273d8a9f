package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/connectors"
	"github.com/dwizi/job-agent/internal/gateway"
	"github.com/dwizi/job-agent/internal/heartbeat"
)

const componentName = "connector:telegram"

type Gateway interface {
	HandleMessage(ctx context.Context, input gateway.MessageInput) (gateway.MessageOutput, error)
	IngestResume(ctx context.Context, input gateway.DocumentInput) (gateway.MessageOutput, error)
}

type Connector struct {
	token          string
	apiBase        string
	pollSeconds    int
	commandSync    bool
	maxUploadBytes int64
	gateway        Gateway
	httpClient     *http.Client
	logger         *slog.Logger
	dispatcher     *connectors.Dispatcher
	botUsername    string
	offset         int64
	reporter       heartbeat.Reporter
}

type Option func(*Connector)

func WithCommandSync(enabled bool) Option {
	return func(connector *Connector) {
		connector.commandSync = enabled
	}
}

func WithMaxUploadBytes(limit int64) Option {
	return func(connector *Connector) {
		if limit > 0 {
			connector.maxUploadBytes = limit
		}
	}
}

func New(token, apiBase string, pollSeconds int, commandGateway Gateway, logger *slog.Logger, opts ...Option) *Connector {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = "https://api.telegram.org"
	}
	if pollSeconds < 1 {
		pollSeconds = 25
	}
	if logger == nil {
		logger = slog.Default()
	}
	connector := &Connector{
		token:          strings.TrimSpace(token),
		apiBase:        strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		pollSeconds:    pollSeconds,
		commandSync:    true,
		maxUploadBytes: 10 << 20,
		gateway:        commandGateway,
		httpClient: &http.Client{
			Timeout: time.Duration(pollSeconds+10) * time.Second,
		},
		logger:     logger,
		dispatcher: connectors.NewDispatcher(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(connector)
		}
	}
	return connector
}

func (c *Connector) Name() string {
	return "telegram"
}

func (c *Connector) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	c.reporter = reporter
}
