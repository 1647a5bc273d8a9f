package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/gateway"
	"github.com/dwizi/job-agent/internal/heartbeat"
	"github.com/dwizi/job-agent/internal/store"
)

type MessageGateway interface {
	HandleMessage(ctx context.Context, input gateway.MessageInput) (gateway.MessageOutput, error)
	IngestResume(ctx context.Context, input gateway.DocumentInput) (gateway.MessageOutput, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type ExportLister interface {
	ListExports(ctx context.Context, limit int) ([]store.ExportRecord, error)
}

type ArtifactLister interface {
	ListArtifacts(ctx context.Context, userID string) ([]store.Artifact, error)
}

type Dependencies struct {
	Gateway             MessageGateway
	Store               Pinger
	Exports             ExportLister
	Artifacts           ArtifactLister
	Logger              *slog.Logger
	Heartbeat           *heartbeat.Registry
	HeartbeatStaleAfter time.Duration
	APIToken            string
	Version             string
	MaxUploadBytes      int64
}

type router struct {
	deps       Dependencies
	wsPongWait time.Duration
}

func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/heartbeat", rt.handleHeartbeat)
	mux.HandleFunc("/api/v1/info", rt.handleInfo)
	mux.HandleFunc("/api/v1/chat", rt.requireToken(rt.handleChat))
	mux.HandleFunc("/api/v1/resume", rt.requireToken(rt.handleResume))
	mux.HandleFunc("/api/v1/exports", rt.requireToken(rt.handleExports))
	mux.HandleFunc("/api/v1/artifacts", rt.requireToken(rt.handleArtifacts))
	mux.HandleFunc("/api/v1/ws", rt.requireToken(rt.handleWebSocket))
	return mux
}

// requireToken is a no-op when no API token is configured.
func (r *router) requireToken(next http.HandlerFunc) http.HandlerFunc {
	expected := strings.TrimSpace(r.deps.APIToken)
	if expected == "" {
		return next
	}
	return func(w http.ResponseWriter, req *http.Request) {
		provided := strings.TrimSpace(strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer "))
		if provided == "" {
			provided = strings.TrimSpace(req.URL.Query().Get("token"))
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, req)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
