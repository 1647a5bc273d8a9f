package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/advisor"
	"github.com/dwizi/job-agent/internal/artifacts"
	"github.com/dwizi/job-agent/internal/compose"
	"github.com/dwizi/job-agent/internal/config"
	"github.com/dwizi/job-agent/internal/connectors"
	"github.com/dwizi/job-agent/internal/connectors/telegram"
	"github.com/dwizi/job-agent/internal/gateway"
	"github.com/dwizi/job-agent/internal/heartbeat"
	"github.com/dwizi/job-agent/internal/httpapi"
	"github.com/dwizi/job-agent/internal/jobs/googlecse"
	"github.com/dwizi/job-agent/internal/jobs/jooble"
	"github.com/dwizi/job-agent/internal/jobs/remotive"
	"github.com/dwizi/job-agent/internal/llm"
	"github.com/dwizi/job-agent/internal/llm/gemini"
	"github.com/dwizi/job-agent/internal/llm/openai"
	"github.com/dwizi/job-agent/internal/resume"
	"github.com/dwizi/job-agent/internal/scheduler"
	"github.com/dwizi/job-agent/internal/session"
	"github.com/dwizi/job-agent/internal/sheets"
	"github.com/dwizi/job-agent/internal/store"
)

// Version is stamped by the build.
var Version = "dev"

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ensureDataDirs(cfg); err != nil {
		return nil, err
	}

	sqlStore, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(ctx); err != nil {
		sqlStore.Close()
		return nil, err
	}

	var heartbeatRegistry *heartbeat.Registry
	if cfg.HeartbeatEnabled {
		heartbeatRegistry = heartbeat.NewRegistry()
		heartbeatRegistry.Starting("runtime", "booting")
		heartbeatRegistry.Starting("api", "initializing")
	}

	model, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}
	expander := advisor.NewExpander(newExpanderModel(cfg, model, logger))
	writer := advisor.NewWriter(model, cfg.LLMTemperature)

	externalTimeout := time.Duration(cfg.ExternalTimeoutSec) * time.Second
	searcher := jooble.New(jooble.Config{
		APIKey:       cfg.JoobleAPIKey,
		BaseURL:      cfg.JoobleAPIURL,
		Timeout:      externalTimeout,
		RecencyDays:  cfg.RecencyDays,
		DefaultPlace: cfg.DefaultLocation,
	}, logger)
	directSources, varietySources := secondarySources(cfg, logger)

	exporter, err := newExporter(ctx, cfg, sqlStore, logger)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}
	mirror, err := newMirror(ctx, cfg)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}
	artifactManager := artifacts.NewManager(
		compose.NewRenderer(cfg.ArtifactDir),
		sqlStore,
		mirror,
		time.Duration(cfg.ArtifactRetentionHours)*time.Hour,
		logger,
	)
	sweeper, err := scheduler.New(artifactManager, cfg.ArtifactSweepSchedule, logger)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}

	deps := gateway.Dependencies{
		Sessions:       session.NewStore(sqlStore, logger),
		Searcher:       searcher,
		Expander:       expander,
		DirectSources:  directSources,
		VarietySources: varietySources,
		Writer:         writer,
		Composer:       artifactManager,
		Parser:         resume.NewParser(),
		Resumes:        sqlStore,
		Transcript:     newTranscriptLog(cfg.TranscriptDir),
	}
	if exporter != nil {
		deps.Exporter = exporter
	}
	commandGateway := gateway.New(deps, gateway.Options{
		DefaultLocation:   cfg.DefaultLocation,
		SearchMaxResults:  cfg.SearchMaxResults,
		MoreStopSearchAt:  cfg.MoreStopSearchAt,
		MoreAppendCap:     cfg.MoreAppendCap,
		ExternalTimeout:   externalTimeout,
		ChatHistoryWindow: cfg.ChatHistoryWindow,
		Candidate: gateway.Candidate{
			Name:     cfg.CandidateName,
			Email:    cfg.CandidateEmail,
			Phone:    cfg.CandidatePhone,
			Location: cfg.CandidateLocation,
		},
	}, logger)

	staleAfter := time.Duration(cfg.HeartbeatStaleSec) * time.Second
	handler := httpapi.NewRouter(httpapi.Dependencies{
		Gateway:             commandGateway,
		Store:               sqlStore,
		Exports:             sqlStore,
		Artifacts:           sqlStore,
		Logger:              logger.With("component", "api"),
		Heartbeat:           heartbeatRegistry,
		HeartbeatStaleAfter: staleAfter,
		APIToken:            cfg.HTTPAPIToken,
		Version:             Version,
		MaxUploadBytes:      int64(cfg.MaxUploadBytes),
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	connectorList := []connectors.Connector{
		telegram.New(cfg.TelegramToken, cfg.TelegramAPI, cfg.TelegramPoll, commandGateway, logger.With("connector", "telegram"),
			telegram.WithCommandSync(cfg.CommandSyncEnabled),
			telegram.WithMaxUploadBytes(int64(cfg.MaxUploadBytes)),
		),
	}

	var monitor *heartbeat.Monitor
	if heartbeatRegistry != nil {
		sweeper.SetHeartbeatReporter(heartbeatRegistry)
		for _, conn := range connectorList {
			if aware, ok := conn.(heartbeatAware); ok {
				aware.SetHeartbeatReporter(heartbeatRegistry)
			}
		}
		monitor = heartbeat.NewMonitor(heartbeatRegistry, time.Duration(cfg.HeartbeatIntervalSec)*time.Second, staleAfter, logger)
		monitor.OnTransition(newHeartbeatNotifier(heartbeatLogPath(cfg.DataDir), logger).HandleTransition)
	}

	return &Runtime{
		cfg:              cfg,
		logger:           logger,
		store:            sqlStore,
		gateway:          commandGateway,
		artifacts:        artifactManager,
		httpServer:       httpServer,
		scheduler:        sweeper,
		connectors:       connectorList,
		heartbeat:        heartbeatRegistry,
		heartbeatMonitor: monitor,
	}, nil
}

func newCompleter(ctx context.Context, cfg config.Config, logger *slog.Logger) (llm.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "openai":
		return openai.New(openai.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
		}, logger), nil
	case "gemini":
		client, err := gemini.New(ctx, gemini.Config{APIKey: cfg.LLMAPIKey, Model: cfg.LLMModel}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

// newExpanderModel uses the dedicated OpenRouter endpoint when a key is set,
// otherwise the main model expands queries too.
func newExpanderModel(cfg config.Config, fallback llm.Completer, logger *slog.Logger) llm.Completer {
	if strings.TrimSpace(cfg.ExpanderAPIKey) == "" {
		return fallback
	}
	return openai.New(openai.Config{
		APIKey:  cfg.ExpanderAPIKey,
		BaseURL: cfg.ExpanderBaseURL,
		Model:   cfg.ExpanderModel,
		Timeout: 20 * time.Second,
		Headers: map[string]string{
			"HTTP-Referer": "https://github.com/dwizi/job-agent",
			"X-Title":      "Job Agent",
		},
	}, logger.With("role", "query-expander"))
}

// secondarySources returns the sources searched with the original query and
// the ones searched once per expanded variation.
func secondarySources(cfg config.Config, logger *slog.Logger) ([]gateway.SecondarySource, []gateway.SecondarySource) {
	timeout := time.Duration(cfg.ExternalTimeoutSec) * time.Second
	var direct, variety []gateway.SecondarySource
	if cfg.RemotiveEnabled {
		direct = append(direct, remotive.New(remotive.Config{
			BaseURL:     cfg.RemotiveAPIURL,
			Timeout:     timeout,
			RecencyDays: cfg.RecencyDays,
		}, logger))
	}
	if cfg.GoogleSearchKey != "" && cfg.GoogleSearchCX != "" {
		variety = append(variety, googlecse.New(googlecse.Config{
			APIKey:   cfg.GoogleSearchKey,
			EngineID: cfg.GoogleSearchCX,
			Timeout:  timeout,
		}, logger))
	}
	return direct, variety
}

// newExporter returns nil when no sheet is configured; /export then reports
// the service as unavailable.
func newExporter(ctx context.Context, cfg config.Config, recorder sheets.Recorder, logger *slog.Logger) (*sheets.Exporter, error) {
	if cfg.GoogleServiceAccountFile == "" || cfg.GoogleSheetURL == "" {
		logger.Warn("google sheets export disabled", "reason", "service account file or sheet url missing")
		return nil, nil
	}
	exporter, err := sheets.New(ctx, sheets.Config{
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		SheetURL:           cfg.GoogleSheetURL,
		Tab:                cfg.GoogleSheetTab,
		Timeout:            time.Duration(cfg.ExternalTimeoutSec) * time.Second,
	}, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("configure sheets exporter: %w", err)
	}
	return exporter, nil
}

func newMirror(ctx context.Context, cfg config.Config) (artifacts.Mirror, error) {
	s3Config := artifacts.S3Config{
		Bucket:    cfg.ArtifactBucket,
		Endpoint:  cfg.ArtifactEndpoint,
		Region:    cfg.ArtifactRegion,
		AccessKey: cfg.ArtifactAccessKey,
		SecretKey: cfg.ArtifactSecretKey,
	}
	if !s3Config.Enabled() {
		return nil, nil
	}
	mirror, err := artifacts.NewS3Mirror(ctx, s3Config)
	if err != nil {
		return nil, fmt.Errorf("configure artifact mirror: %w", err)
	}
	return mirror, nil
}
