package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/gateway"
)

type chatRequest struct {
	Connector   string `json:"connector"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

type chatResponse struct {
	Reply        string `json:"reply"`
	Action       string `json:"action"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
}

func newChatResponse(output gateway.MessageOutput) chatResponse {
	return chatResponse{
		Reply:        output.Reply,
		Action:       string(output.Action),
		ErrorKind:    string(output.ErrorKind),
		ArtifactPath: output.ArtifactPath,
	}
}

func (r *router) handleChat(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Gateway == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "chat gateway is unavailable"})
		return
	}

	var payload chatRequest
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	connector := strings.ToLower(strings.TrimSpace(payload.Connector))
	if connector == "" {
		connector = "http"
	}

	output, err := r.deps.Gateway.HandleMessage(req.Context(), gateway.MessageInput{
		Connector:   connector,
		UserID:      userID,
		DisplayName: strings.TrimSpace(payload.DisplayName),
		Text:        payload.Text,
	})
	if err != nil {
		r.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatResponse(output))
}

func (r *router) handleResume(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Gateway == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "chat gateway is unavailable"})
		return
	}
	req.Body = http.MaxBytesReader(w, req.Body, r.deps.MaxUploadBytes+(1<<20))
	if err := req.ParseMultipartForm(r.deps.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart upload"})
		return
	}
	userID := strings.TrimSpace(req.FormValue("user_id"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, r.deps.MaxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read upload failed"})
		return
	}
	if int64(len(data)) > r.deps.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
		return
	}

	output, err := r.deps.Gateway.IngestResume(req.Context(), gateway.DocumentInput{
		Connector: "http",
		UserID:    userID,
		Filename:  header.Filename,
		Data:      data,
	})
	if err != nil {
		r.writeGatewayError(w, err)
		return
	}
	status := http.StatusOK
	if output.ErrorKind == agenterr.KindValidation {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, newChatResponse(output))
}

func (r *router) handleExports(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Exports == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "export history is unavailable"})
		return
	}
	records, err := r.deps.Exports.ListExports(req.Context(), 20)
	if err != nil {
		r.deps.Logger.Error("list exports failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list exports failed"})
		return
	}
	items := make([]map[string]any, 0, len(records))
	for _, record := range records {
		items = append(items, map[string]any{
			"id":              record.ID,
			"target_url":      record.TargetURL,
			"job_count":       record.JobCount,
			"created_at_unix": record.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": items})
}

func (r *router) handleArtifacts(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Artifacts == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "artifact history is unavailable"})
		return
	}
	userID := strings.TrimSpace(req.URL.Query().Get("user_id"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	records, err := r.deps.Artifacts.ListArtifacts(req.Context(), userID)
	if err != nil {
		r.deps.Logger.Error("list artifacts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list artifacts failed"})
		return
	}
	items := make([]map[string]any, 0, len(records))
	for _, record := range records {
		items = append(items, map[string]any{
			"id":              record.ID,
			"kind":            record.Kind,
			"file_name":       filepath.Base(record.FilePath),
			"remote_key":      record.RemoteKey,
			"created_at_unix": record.CreatedAt.Unix(),
			"expires_at_unix": record.ExpiresAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": items})
}

func (r *router) writeGatewayError(w http.ResponseWriter, err error) {
	if errors.Is(err, agenterr.ErrEmptyUserID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	r.deps.Logger.Error("gateway request failed", "error", err)
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request could not be processed"})
}
