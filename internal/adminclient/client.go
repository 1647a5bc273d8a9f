// Package adminclient talks to a running job-agent over its HTTP API.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/agenterr"
	"github.com/dwizi/job-agent/internal/gateway"
	"github.com/dwizi/job-agent/internal/session"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type ChatRequest struct {
	Connector   string `json:"connector"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

type ChatResponse struct {
	Reply        string `json:"reply"`
	Action       string `json:"action"`
	ErrorKind    string `json:"error_kind"`
	ArtifactPath string `json:"artifact_path"`
}

type ExportRecord struct {
	ID            string `json:"id"`
	TargetURL     string `json:"target_url"`
	JobCount      int    `json:"job_count"`
	CreatedAtUnix int64  `json:"created_at_unix"`
}

func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if timeout < time.Second {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Chat(ctx context.Context, input ChatRequest) (ChatResponse, error) {
	input.Text = strings.TrimSpace(input.Text)
	if input.Text == "" {
		return ChatResponse{}, fmt.Errorf("text is required")
	}
	requestBody, err := json.Marshal(input)
	if err != nil {
		return ChatResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat", bytes.NewReader(requestBody))
	if err != nil {
		return ChatResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	var response ChatResponse
	if err := c.doJSON(req, &response); err != nil {
		return ChatResponse{}, err
	}
	return response, nil
}

func (c *Client) UploadResume(ctx context.Context, userID, filename string, data []byte) (ChatResponse, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("user_id", strings.TrimSpace(userID)); err != nil {
		return ChatResponse{}, err
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return ChatResponse{}, err
	}
	if _, err := part.Write(data); err != nil {
		return ChatResponse{}, err
	}
	if err := form.Close(); err != nil {
		return ChatResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/resume", &body)
	if err != nil {
		return ChatResponse{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	var response ChatResponse
	// A rejected format comes back as 422 with a reply body worth showing.
	if err := c.doJSON(req, &response, http.StatusUnprocessableEntity); err != nil {
		return ChatResponse{}, err
	}
	return response, nil
}

func (c *Client) ListExports(ctx context.Context) ([]ExportRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/exports", nil)
	if err != nil {
		return nil, err
	}
	var response struct {
		Exports []ExportRecord `json:"exports"`
	}
	if err := c.doJSON(req, &response); err != nil {
		return nil, err
	}
	return response.Exports, nil
}

// HandleMessage and IngestResume let the client stand in for the in-process gateway.
func (c *Client) HandleMessage(ctx context.Context, input gateway.MessageInput) (gateway.MessageOutput, error) {
	response, err := c.Chat(ctx, ChatRequest{
		Connector:   input.Connector,
		UserID:      input.UserID,
		DisplayName: input.DisplayName,
		Text:        input.Text,
	})
	if err != nil {
		return gateway.MessageOutput{}, err
	}
	return response.output(), nil
}

func (c *Client) IngestResume(ctx context.Context, input gateway.DocumentInput) (gateway.MessageOutput, error) {
	response, err := c.UploadResume(ctx, input.UserID, input.Filename, input.Data)
	if err != nil {
		return gateway.MessageOutput{}, err
	}
	return response.output(), nil
}

func (r ChatResponse) output() gateway.MessageOutput {
	return gateway.MessageOutput{
		Handled:      true,
		Reply:        r.Reply,
		ArtifactPath: r.ArtifactPath,
		Action:       session.Action(r.Action),
		ErrorKind:    agenterr.Kind(r.ErrorKind),
	}
}

func (c *Client) doJSON(req *http.Request, out any, acceptStatus ...int) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	accepted := false
	for _, status := range acceptStatus {
		if res.StatusCode == status {
			accepted = true
		}
	}
	if res.StatusCode >= http.StatusBadRequest && !accepted {
		var apiError struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&apiError)
		if strings.TrimSpace(apiError.Error) == "" {
			apiError.Error = res.Status
		}
		return errors.New(apiError.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
