package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dwizi/job-agent/internal/config"
	"github.com/dwizi/job-agent/internal/gateway"
	"github.com/dwizi/job-agent/internal/heartbeat"
	"github.com/dwizi/job-agent/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dataDir := t.TempDir()
	return config.Config{
		HTTPAddr:               "127.0.0.1:0",
		DataDir:                dataDir,
		DBPath:                 filepath.Join(dataDir, "db", "job-agent.sqlite"),
		ArtifactDir:            filepath.Join(dataDir, "artifacts"),
		TranscriptDir:          dataDir,
		HeartbeatEnabled:       true,
		HeartbeatIntervalSec:   30,
		HeartbeatStaleSec:      120,
		LLMProvider:            "openai",
		LLMTimeoutSec:          5,
		RemotiveEnabled:        true,
		ExternalTimeoutSec:     5,
		ArtifactRetentionHours: 72,
		ArtifactSweepSchedule:  "@hourly",
	}
}

func TestNewBuildsRuntimeWithOptionalServicesDisabled(t *testing.T) {
	cfg := testConfig(t)
	runtime, err := New(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	if _, err := os.Stat(cfg.DBPath); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
	if runtime.Gateway() == nil || runtime.scheduler == nil || runtime.heartbeatMonitor == nil {
		t.Fatalf("expected wired runtime, got %+v", runtime)
	}
	if len(runtime.connectors) != 1 || runtime.connectors[0].Name() != "telegram" {
		t.Fatalf("unexpected connectors %+v", runtime.connectors)
	}

	output, err := runtime.Gateway().HandleMessage(context.Background(), gateway.MessageInput{Connector: "test", UserID: "u-1", Text: "/export"})
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if output.Action != session.ActionExport || output.Reply == "" {
		t.Fatalf("unexpected output %+v", output)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProvider = "mystery"
	if _, err := New(context.Background(), cfg, testLogger()); err == nil || !strings.Contains(err.Error(), "mystery") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSecondarySourcesSplit(t *testing.T) {
	cfg := testConfig(t)
	direct, variety := secondarySources(cfg, testLogger())
	if len(direct) != 1 || direct[0].Name() != "Remotive" || len(variety) != 0 {
		t.Fatalf("unexpected sources without google keys: %d/%d", len(direct), len(variety))
	}

	cfg.GoogleSearchKey = "key"
	cfg.GoogleSearchCX = "cx"
	cfg.RemotiveEnabled = false
	direct, variety = secondarySources(cfg, testLogger())
	if len(direct) != 0 || len(variety) != 1 || variety[0].Name() != "LinkedIn (Google)" {
		t.Fatalf("unexpected sources with google keys: %d/%d", len(direct), len(variety))
	}
}

func TestTranscriptLogWritesBothDirections(t *testing.T) {
	root := t.TempDir()
	log := newTranscriptLog(root)
	log.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	err := log.Append(gateway.TranscriptEntry{
		Connector: "Telegram",
		UserID:    "42",
		Action:    session.ActionSearch,
		Inbound:   "/search go",
		Reply:     "Found 2 jobs",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	data, err := os.ReadFile(log.writer.Path("telegram", "42"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	content := string(data)
	inbound := strings.Index(content, "/search go")
	outbound := strings.Index(content, "Found 2 jobs")
	if inbound < 0 || outbound < 0 || inbound > outbound {
		t.Fatalf("unexpected transcript:\n%s", content)
	}
}

func TestHeartbeatNotifierLogsDegradedAndRecovered(t *testing.T) {
	path := heartbeatLogPath(t.TempDir())
	notifier := newHeartbeatNotifier(path, testLogger())
	notifier.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	notifier.HandleTransition(heartbeat.Transition{Component: "connector:telegram", From: heartbeat.StateHealthy, To: heartbeat.StateDegraded, Error: "poll failed"})
	notifier.HandleTransition(heartbeat.Transition{Component: "api", From: heartbeat.StateStarting, To: heartbeat.StateHealthy})
	notifier.HandleTransition(heartbeat.Transition{Component: "connector:telegram", From: heartbeat.StateDegraded, To: heartbeat.StateHealthy})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read heartbeat log: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# Heartbeat Log") {
		t.Fatalf("missing header:\n%s", content)
	}
	if !strings.Contains(content, "[DEGRADED] component=`connector:telegram`") || !strings.Contains(content, "error=poll failed") {
		t.Fatalf("missing degraded line:\n%s", content)
	}
	if !strings.Contains(content, "[RECOVERED]") || strings.Contains(content, "component=`api`") {
		t.Fatalf("unexpected recovery lines:\n%s", content)
	}
}

type recordingReporter struct {
	mu     sync.Mutex
	states []string
}

func (r *recordingReporter) record(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingReporter) Starting(component, message string) {
	r.record("starting")
}

func (r *recordingReporter) Beat(component, message string) {
	r.record("beat")
}

func (r *recordingReporter) Degrade(component, message string, err error) {
	r.record("degraded")
}

func (r *recordingReporter) Disabled(component, message string) {
	r.record("disabled")
}

func (r *recordingReporter) Stopped(component, message string) {
	r.record("stopped")
}

func TestRunMonitoredReportsFailure(t *testing.T) {
	reporter := &recordingReporter{}
	boom := errors.New("boom")
	err := runMonitored(context.Background(), reporter, "api", 0, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if strings.Join(reporter.states, ",") != "starting,beat,degraded" {
		t.Fatalf("unexpected states %v", reporter.states)
	}

	reporter = &recordingReporter{}
	if err := runMonitored(context.Background(), reporter, "api", 0, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if reporter.states[len(reporter.states)-1] != "stopped" {
		t.Fatalf("expected stopped, got %v", reporter.states)
	}

	if err := runMonitored(context.Background(), nil, "api", 0, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("nil reporter should run plainly, got %v", err)
	}
}
