// Package sheets appends job rows to a Google Sheets tracker using a service account.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/dwizi/job-agent/internal/jobs"
	"golang.org/x/oauth2/google"
)

const spreadsheetsScope = "https://www.googleapis.com/auth/spreadsheets"

var (
	ErrInvalidSheetURL = errors.New("google sheet url does not contain a spreadsheet id")
	sheetIDPattern     = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	header             = []string{"Title", "Company", "Location", "Salary", "URL", "Added Date", "Applied", "Notes"}
)

type Recorder interface {
	RecordExport(ctx context.Context, targetURL string, jobCount int) error
}

type Config struct {
	ServiceAccountFile string
	SheetURL           string
	Tab                string
	BaseURL            string
	Timeout            time.Duration
}

type Exporter struct {
	cfg           Config
	spreadsheetID string
	httpClient    *http.Client
	recorder      Recorder
	logger        *slog.Logger
	now           func() time.Time
}

// New authenticates with the service-account key file.
func New(ctx context.Context, cfg Config, recorder Recorder, logger *slog.Logger) (*Exporter, error) {
	data, err := os.ReadFile(strings.TrimSpace(cfg.ServiceAccountFile))
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	jwtConfig, err := google.JWTConfigFromJSON(data, spreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	httpClient := jwtConfig.Client(ctx)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	return NewWithClient(cfg, httpClient, recorder, logger)
}

func NewWithClient(cfg Config, httpClient *http.Client, recorder Recorder, logger *slog.Logger) (*Exporter, error) {
	id, err := SpreadsheetID(cfg.SheetURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Tab) == "" {
		cfg.Tab = "Jobs"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://sheets.googleapis.com/v4"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		cfg:           cfg,
		spreadsheetID: id,
		httpClient:    httpClient,
		recorder:      recorder,
		logger:        logger.With("component", "sheets"),
		now:           time.Now,
	}, nil
}

func SpreadsheetID(sheetURL string) (string, error) {
	match := sheetIDPattern.FindStringSubmatch(sheetURL)
	if len(match) != 2 {
		return "", ErrInvalidSheetURL
	}
	return match[1], nil
}

func (e *Exporter) TargetURL() string {
	return e.cfg.SheetURL
}

// ExportJobs inserts the batch at row 2 so the newest jobs sit under the header.
func (e *Exporter) ExportJobs(ctx context.Context, items []jobs.Job) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	sheetID, err := e.ensureTab(ctx)
	if err != nil {
		return 0, err
	}

	insert := map[string]any{
		"requests": []any{map[string]any{
			"insertDimension": map[string]any{
				"range": map[string]any{
					"sheetId":    sheetID,
					"dimension":  "ROWS",
					"startIndex": 1,
					"endIndex":   1 + len(items),
				},
				"inheritFromBefore": false,
			},
		}},
	}
	if err := e.call(ctx, http.MethodPost, e.spreadsheetURL()+":batchUpdate", nil, insert, nil); err != nil {
		return 0, fmt.Errorf("insert rows: %w", err)
	}

	added := e.now().Format("2006-01-02 15:04")
	rows := make([][]string, 0, len(items))
	for _, job := range items {
		rows = append(rows, []string{job.Title, job.Company, job.Location, job.Salary, job.Link, added, "No", ""})
	}
	rangeA1 := fmt.Sprintf("%s!A2:H%d", e.cfg.Tab, 1+len(rows))
	if err := e.writeValues(ctx, rangeA1, rows); err != nil {
		return 0, fmt.Errorf("write rows: %w", err)
	}

	if e.recorder != nil {
		if err := e.recorder.RecordExport(ctx, e.cfg.SheetURL, len(rows)); err != nil {
			e.logger.Warn("record export failed", "error", err)
		}
	}
	e.logger.Info("jobs exported", "rows", len(rows), "tab", e.cfg.Tab)
	return len(rows), nil
}

type spreadsheetMeta struct {
	Sheets []struct {
		Properties struct {
			SheetID int64  `json:"sheetId"`
			Title   string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

// ensureTab returns the numeric sheet id of the tab, creating it with a header row when missing.
func (e *Exporter) ensureTab(ctx context.Context) (int64, error) {
	var meta spreadsheetMeta
	query := url.Values{"fields": []string{"sheets.properties"}}
	if err := e.call(ctx, http.MethodGet, e.spreadsheetURL(), query, nil, &meta); err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties.Title == e.cfg.Tab {
			return sheet.Properties.SheetID, e.ensureHeader(ctx)
		}
	}

	add := map[string]any{
		"requests": []any{map[string]any{
			"addSheet": map[string]any{"properties": map[string]any{"title": e.cfg.Tab}},
		}},
	}
	var reply struct {
		Replies []struct {
			AddSheet struct {
				Properties struct {
					SheetID int64 `json:"sheetId"`
				} `json:"properties"`
			} `json:"addSheet"`
		} `json:"replies"`
	}
	if err := e.call(ctx, http.MethodPost, e.spreadsheetURL()+":batchUpdate", nil, add, &reply); err != nil {
		return 0, fmt.Errorf("add tab: %w", err)
	}
	if len(reply.Replies) == 0 {
		return 0, fmt.Errorf("add tab: empty reply")
	}
	e.logger.Info("created tracker tab", "tab", e.cfg.Tab)
	if err := e.writeValues(ctx, e.cfg.Tab+"!A1:H1", [][]string{header}); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	return reply.Replies[0].AddSheet.Properties.SheetID, nil
}

func (e *Exporter) ensureHeader(ctx context.Context) error {
	var current struct {
		Values [][]string `json:"values"`
	}
	if err := e.call(ctx, http.MethodGet, e.valuesURL(e.cfg.Tab+"!A1:H1"), nil, nil, &current); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(current.Values) > 0 && len(current.Values[0]) > 0 {
		return nil
	}
	if err := e.writeValues(ctx, e.cfg.Tab+"!A1:H1", [][]string{header}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (e *Exporter) writeValues(ctx context.Context, rangeA1 string, rows [][]string) error {
	body := map[string]any{"range": rangeA1, "majorDimension": "ROWS", "values": rows}
	query := url.Values{"valueInputOption": []string{"USER_ENTERED"}}
	return e.call(ctx, http.MethodPut, e.valuesURL(rangeA1), query, body, nil)
}

func (e *Exporter) spreadsheetURL() string {
	return strings.TrimRight(e.cfg.BaseURL, "/") + "/spreadsheets/" + e.spreadsheetID
}

func (e *Exporter) valuesURL(rangeA1 string) string {
	return e.spreadsheetURL() + "/values/" + url.PathEscape(rangeA1)
}

func (e *Exporter) call(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(res.Body, 2<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("sheets api error %d: %s", res.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
