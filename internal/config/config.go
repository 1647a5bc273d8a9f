package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	LogLevel      string
	HTTPAddr      string
	HTTPAPIToken  string
	DataDir       string
	DBPath        string
	ArtifactDir   string
	TranscriptDir string

	HeartbeatEnabled     bool
	HeartbeatIntervalSec int
	HeartbeatStaleSec    int

	TelegramToken      string
	TelegramAPI        string
	TelegramPoll       int
	CommandSyncEnabled bool
	MaxUploadBytes     int

	LLMProvider    string // openai | gemini
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeoutSec  int
	LLMTemperature float64

	ExpanderBaseURL string
	ExpanderAPIKey  string
	ExpanderModel   string

	JoobleAPIKey    string
	JoobleAPIURL    string
	GoogleSearchKey string
	GoogleSearchCX  string
	RemotiveEnabled bool
	RemotiveAPIURL  string

	GoogleServiceAccountFile string
	GoogleSheetURL           string
	GoogleSheetTab           string

	DefaultLocation    string
	RecencyDays        int
	SearchMaxResults   int
	MoreStopSearchAt   int
	MoreAppendCap      int
	ExternalTimeoutSec int
	ChatHistoryWindow  int

	CandidateName     string
	CandidateEmail    string
	CandidatePhone    string
	CandidateLocation string

	ArtifactRetentionHours int
	ArtifactSweepSchedule  string
	ArtifactBucket         string
	ArtifactEndpoint       string
	ArtifactRegion         string
	ArtifactAccessKey      string
	ArtifactSecretKey      string
}

// LoadDotEnv reads key=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func FromEnv() Config {
	dataDir := stringOrDefault("JOB_AGENT_DATA_DIR", "./data")
	provider := strings.ToLower(stringOrDefault("JOB_AGENT_LLM_PROVIDER", "openai"))
	defaultModel := "llama-3.3-70b-versatile"
	if provider == "gemini" {
		defaultModel = "gemini-2.5-flash"
	}

	return Config{
		Environment:   stringOrDefault("JOB_AGENT_ENV", "development"),
		LogLevel:      strings.ToLower(stringOrDefault("JOB_AGENT_LOG_LEVEL", "info")),
		HTTPAddr:      stringOrDefault("JOB_AGENT_HTTP_ADDR", ":8080"),
		HTTPAPIToken:  strings.TrimSpace(os.Getenv("JOB_AGENT_HTTP_API_TOKEN")),
		DataDir:       dataDir,
		DBPath:        stringOrDefault("JOB_AGENT_DB_PATH", filepath.Join(dataDir, "job-agent.sqlite")),
		ArtifactDir:   stringOrDefault("JOB_AGENT_ARTIFACT_DIR", filepath.Join(dataDir, "artifacts")),
		TranscriptDir: stringOrDefault("JOB_AGENT_TRANSCRIPT_DIR", dataDir),

		HeartbeatEnabled:     boolOrDefault("JOB_AGENT_HEARTBEAT_ENABLED", true),
		HeartbeatIntervalSec: intOrDefault("JOB_AGENT_HEARTBEAT_INTERVAL_SECONDS", 30),
		HeartbeatStaleSec:    intOrDefault("JOB_AGENT_HEARTBEAT_STALE_SECONDS", 120),

		TelegramToken:      strings.TrimSpace(os.Getenv("JOB_AGENT_TELEGRAM_TOKEN")),
		TelegramAPI:        stringOrDefault("JOB_AGENT_TELEGRAM_API_BASE", "https://api.telegram.org"),
		TelegramPoll:       intOrDefault("JOB_AGENT_TELEGRAM_POLL_SECONDS", 25),
		CommandSyncEnabled: boolOrDefault("JOB_AGENT_COMMAND_SYNC_ENABLED", true),
		MaxUploadBytes:     intOrDefault("JOB_AGENT_MAX_UPLOAD_BYTES", 10<<20),

		LLMProvider:    provider,
		LLMBaseURL:     stringOrDefault("JOB_AGENT_LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:      strings.TrimSpace(os.Getenv("JOB_AGENT_LLM_API_KEY")),
		LLMModel:       stringOrDefault("JOB_AGENT_LLM_MODEL", defaultModel),
		LLMTimeoutSec:  intOrDefault("JOB_AGENT_LLM_TIMEOUT_SECONDS", 60),
		LLMTemperature: floatOrDefault("JOB_AGENT_LLM_TEMPERATURE", 0.7),

		ExpanderBaseURL: stringOrDefault("JOB_AGENT_EXPANDER_BASE_URL", "https://openrouter.ai/api/v1"),
		ExpanderAPIKey:  strings.TrimSpace(os.Getenv("JOB_AGENT_EXPANDER_API_KEY")),
		ExpanderModel:   stringOrDefault("JOB_AGENT_EXPANDER_MODEL", "google/gemma-2-9b-it:free"),

		JoobleAPIKey:    strings.TrimSpace(os.Getenv("JOB_AGENT_JOOBLE_API_KEY")),
		JoobleAPIURL:    stringOrDefault("JOB_AGENT_JOOBLE_API_URL", "https://jooble.org/api/"),
		GoogleSearchKey: strings.TrimSpace(os.Getenv("JOB_AGENT_GOOGLE_SEARCH_KEY")),
		GoogleSearchCX:  strings.TrimSpace(os.Getenv("JOB_AGENT_GOOGLE_SEARCH_CX")),
		RemotiveEnabled: boolOrDefault("JOB_AGENT_REMOTIVE_ENABLED", true),
		RemotiveAPIURL:  stringOrDefault("JOB_AGENT_REMOTIVE_API_URL", "https://remotive.com/api/remote-jobs"),

		GoogleServiceAccountFile: strings.TrimSpace(os.Getenv("JOB_AGENT_GOOGLE_SERVICE_ACCOUNT_FILE")),
		GoogleSheetURL:           strings.TrimSpace(os.Getenv("JOB_AGENT_GOOGLE_SHEET_URL")),
		GoogleSheetTab:           stringOrDefault("JOB_AGENT_GOOGLE_SHEET_TAB", "Jobs"),

		DefaultLocation:    stringOrDefault("JOB_AGENT_DEFAULT_LOCATION", "remote"),
		RecencyDays:        intOrDefault("JOB_AGENT_RECENCY_DAYS", 3),
		SearchMaxResults:   intOrDefault("JOB_AGENT_SEARCH_MAX_RESULTS", 10),
		MoreStopSearchAt:   intOrDefault("JOB_AGENT_MORE_STOP_SEARCH_AT", 15),
		MoreAppendCap:      intOrDefault("JOB_AGENT_MORE_APPEND_CAP", 20),
		ExternalTimeoutSec: intOrDefault("JOB_AGENT_EXTERNAL_TIMEOUT_SECONDS", 45),
		ChatHistoryWindow:  intOrDefault("JOB_AGENT_CHAT_HISTORY_WINDOW", 20),

		CandidateName:     strings.TrimSpace(os.Getenv("JOB_AGENT_CANDIDATE_NAME")),
		CandidateEmail:    strings.TrimSpace(os.Getenv("JOB_AGENT_CANDIDATE_EMAIL")),
		CandidatePhone:    strings.TrimSpace(os.Getenv("JOB_AGENT_CANDIDATE_PHONE")),
		CandidateLocation: strings.TrimSpace(os.Getenv("JOB_AGENT_CANDIDATE_LOCATION")),

		ArtifactRetentionHours: intOrDefault("JOB_AGENT_ARTIFACT_RETENTION_HOURS", 72),
		ArtifactSweepSchedule:  stringOrDefault("JOB_AGENT_ARTIFACT_SWEEP_SCHEDULE", "@hourly"),
		ArtifactBucket:         strings.TrimSpace(os.Getenv("JOB_AGENT_ARTIFACT_BUCKET")),
		ArtifactEndpoint:       strings.TrimSpace(os.Getenv("JOB_AGENT_ARTIFACT_ENDPOINT")),
		ArtifactRegion:         stringOrDefault("JOB_AGENT_ARTIFACT_REGION", "auto"),
		ArtifactAccessKey:      strings.TrimSpace(os.Getenv("JOB_AGENT_ARTIFACT_ACCESS_KEY")),
		ArtifactSecretKey:      strings.TrimSpace(os.Getenv("JOB_AGENT_ARTIFACT_SECRET_KEY")),
	}
}

// Validate returns the environment keys that must be set before serving.
func (c Config) Validate() []string {
	missing := []string{}
	required := []struct {
		key   string
		value string
	}{
		{"JOB_AGENT_TELEGRAM_TOKEN", c.TelegramToken},
		{"JOB_AGENT_LLM_API_KEY", c.LLMAPIKey},
		{"JOB_AGENT_JOOBLE_API_KEY", c.JoobleAPIKey},
		{"JOB_AGENT_GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile},
		{"JOB_AGENT_GOOGLE_SHEET_URL", c.GoogleSheetURL},
	}
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			missing = append(missing, item.key)
		}
	}
	return missing
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func floatOrDefault(name string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
