package app

import (
	"log/slog"
	"net/http"

	"github.com/dwizi/job-agent/internal/artifacts"
	"github.com/dwizi/job-agent/internal/config"
	"github.com/dwizi/job-agent/internal/connectors"
	"github.com/dwizi/job-agent/internal/gateway"
	"github.com/dwizi/job-agent/internal/heartbeat"
	"github.com/dwizi/job-agent/internal/scheduler"
	"github.com/dwizi/job-agent/internal/store"
)

type Runtime struct {
	cfg              config.Config
	logger           *slog.Logger
	store            *store.Store
	gateway          *gateway.Service
	artifacts        *artifacts.Manager
	httpServer       *http.Server
	scheduler        *scheduler.Service
	connectors       []connectors.Connector
	heartbeat        *heartbeat.Registry
	heartbeatMonitor *heartbeat.Monitor
	closers          []func() error
}

type heartbeatAware interface {
	SetHeartbeatReporter(reporter heartbeat.Reporter)
}
