// Package googlecse finds fresh LinkedIn postings through Google Custom Search.
package googlecse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/jobs"
)

var ErrNotConfigured = errors.New("google search key and cx are required")

type Config struct {
	APIKey   string
	EngineID string
	BaseURL  string
	Results  int
	Timeout  time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if cfg.Results <= 0 || cfg.Results > 10 {
		cfg.Results = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "google-cse"),
	}
}

func (c *Client) Name() string {
	return "LinkedIn (Google)"
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (c *Client) SearchSecondary(ctx context.Context, keywords, location string) ([]jobs.Job, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" || strings.TrimSpace(c.cfg.EngineID) == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(location) == "" {
		location = "Remote"
	}
	query := url.Values{}
	query.Set("key", c.cfg.APIKey)
	query.Set("cx", c.cfg.EngineID)
	query.Set("q", BuildQuery(keywords, location))
	query.Set("num", strconv.Itoa(c.cfg.Results))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google search request failed: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("google search error %d", res.StatusCode)
	}
	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode google search response: %w", err)
	}

	out := make([]jobs.Job, 0, len(decoded.Items))
	for _, item := range decoded.Items {
		title, company := splitTitle(item.Title)
		out = append(out, jobs.Job{
			Title:    title,
			Company:  company,
			Location: location,
			Salary:   "Check listing",
			Link:     strings.TrimSpace(item.Link),
			Source:   c.Name(),
			Snippet:  strings.TrimSpace(item.Snippet),
		})
	}
	c.logger.Debug("google search", "keywords", keywords, "location", location, "results", len(out))
	return out, nil
}

// BuildQuery restricts results to LinkedIn job pages posted within a day.
func BuildQuery(keywords, location string) string {
	return fmt.Sprintf(`site:linkedin.com/jobs/view "%s" "%s" "1 day ago"`, keywords, location)
}

// splitTitle handles result titles shaped like "Role | Company | LinkedIn".
func splitTitle(raw string) (string, string) {
	parts := strings.Split(raw, "|")
	title := strings.TrimSpace(parts[0])
	company := "LinkedIn"
	if len(parts) > 1 {
		if candidate := strings.TrimSpace(parts[1]); candidate != "" && !strings.EqualFold(candidate, "LinkedIn") {
			company = candidate
		}
	}
	return title, company
}
