// Package gemini adapts Google's Gemini API to the llm.Completer contract.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/dwizi/job-agent/internal/llm"
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", llm.ErrUnavailable)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimSpace(cfg.BaseURL)},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		client: client,
		model:  cfg.Model,
		logger: logger.With("component", "llm-gemini", "model", cfg.Model),
	}, nil
}

func (c *Client) Complete(ctx context.Context, request llm.Request) (string, error) {
	contents := make([]*genai.Content, 0, len(request.Messages))
	for _, message := range request.Messages {
		if strings.TrimSpace(message.Content) == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(message.Content, contentRole(message.Role)))
	}
	if len(contents) == 0 {
		return "", nil
	}

	config := &genai.GenerateContentConfig{}
	if system := strings.TrimSpace(request.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if request.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(request.Temperature))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.logger.Error("generate content failed", "error", err)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func contentRole(role string) genai.Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case llm.RoleAssistant, "model":
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}
