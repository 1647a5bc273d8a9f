// Package remotive searches the Remotive remote-jobs board.
package remotive

import (
	"context"
	"encoding/json"
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

type Config struct {
	BaseURL     string
	Limit       int
	Timeout     time.Duration
	RecencyDays int
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://remotive.com/api/remote-jobs"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
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
		logger:     logger.With("component", "remotive"),
		now:        time.Now,
	}
}

func (c *Client) Name() string {
	return "Remotive"
}

type listing struct {
	Jobs []struct {
		URL             string `json:"url"`
		Title           string `json:"title"`
		CompanyName     string `json:"company_name"`
		Salary          string `json:"salary"`
		PublicationDate string `json:"publication_date"`
		Location        string `json:"candidate_required_location"`
	} `json:"jobs"`
}

// SearchSecondary ignores location: every Remotive posting is remote.
func (c *Client) SearchSecondary(ctx context.Context, keywords, _ string) ([]jobs.Job, error) {
	query := url.Values{}
	query.Set("search", keywords)
	query.Set("limit", strconv.Itoa(c.cfg.Limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remotive request failed: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("remotive api error %d", res.StatusCode)
	}
	var decoded listing
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode remotive response: %w", err)
	}

	now := c.now()
	window := jobs.DaysToWindow(c.cfg.RecencyDays)
	out := make([]jobs.Job, 0, c.cfg.Limit)
	for _, raw := range decoded.Jobs {
		if !jobs.Recent(raw.PublicationDate, now, window) {
			continue
		}
		salary := strings.TrimSpace(raw.Salary)
		if salary == "" {
			salary = "Not specified"
		}
		out = append(out, jobs.Job{
			Title:    strings.TrimSpace(raw.Title),
			Company:  strings.TrimSpace(raw.CompanyName),
			Location: "Remote",
			Salary:   salary,
			Link:     strings.TrimSpace(raw.URL),
			Source:   c.Name(),
			Updated:  raw.PublicationDate,
		})
		if len(out) >= c.cfg.Limit {
			break
		}
	}
	c.logger.Debug("remotive search", "keywords", keywords, "raw", len(decoded.Jobs), "recent", len(out))
	return out, nil
}
