// Package jooble is the primary job search source.
package jooble

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/jobs"
)

var ErrMissingAPIKey = errors.New("jooble api key is required")

type Config struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	RecencyDays  int
	DefaultPlace string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://jooble.org/api/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.DefaultPlace) == "" {
		cfg.DefaultPlace = "remote"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "jooble"),
		now:        time.Now,
	}
}

type searchRequest struct {
	Keywords string `json:"keywords"`
	Location string `json:"location"`
	Page     int    `json:"page"`
}

type searchResponse struct {
	TotalCount int `json:"totalCount"`
	Jobs       []struct {
		Title    string `json:"title"`
		Location string `json:"location"`
		Snippet  string `json:"snippet"`
		Salary   string `json:"salary"`
		Source   string `json:"source"`
		Type     string `json:"type"`
		Link     string `json:"link"`
		Company  string `json:"company"`
		Updated  string `json:"updated"`
	} `json:"jobs"`
}

// SearchJobs returns the first page of results posted inside the recency window.
func (c *Client) SearchJobs(ctx context.Context, keywords, location string) (jobs.SearchResult, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return jobs.SearchResult{}, ErrMissingAPIKey
	}
	if strings.TrimSpace(location) == "" {
		location = c.cfg.DefaultPlace
	}
	body, err := json.Marshal(searchRequest{Keywords: keywords, Location: location, Page: 1})
	if err != nil {
		return jobs.SearchResult{}, fmt.Errorf("marshal jooble request: %w", err)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + c.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return jobs.SearchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return jobs.SearchResult{}, fmt.Errorf("jooble request failed: %w", err)
	}
	defer res.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return jobs.SearchResult{}, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return jobs.SearchResult{}, fmt.Errorf("jooble api error %d: %s", res.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded searchResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return jobs.SearchResult{}, fmt.Errorf("decode jooble response: %w", err)
	}
	items := make([]jobs.Job, 0, len(decoded.Jobs))
	for _, raw := range decoded.Jobs {
		items = append(items, jobs.Job{
			Title:    strings.TrimSpace(raw.Title),
			Company:  strings.TrimSpace(raw.Company),
			Location: strings.TrimSpace(raw.Location),
			Salary:   strings.TrimSpace(raw.Salary),
			Link:     strings.TrimSpace(raw.Link),
			Source:   "Jooble",
			Snippet:  cleanSnippet(raw.Snippet),
			Updated:  raw.Updated,
		})
	}
	recent := jobs.FilterRecent(items, c.now(), jobs.DaysToWindow(c.cfg.RecencyDays))
	c.logger.Debug("jooble search", "keywords", keywords, "location", location, "raw", len(items), "recent", len(recent))
	return jobs.SearchResult{Jobs: recent, TotalCount: len(recent)}, nil
}

var snippetReplacer = strings.NewReplacer("<b>", "", "</b>", "", "&nbsp;", " ", "\r", " ", "\n", " ")

func cleanSnippet(input string) string {
	return strings.Join(strings.Fields(snippetReplacer.Replace(input)), " ")
}
