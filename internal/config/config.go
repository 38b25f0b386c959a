package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the intray service.
// Environment variables are parsed from the INTRAY_ prefix.
type Config struct {
	// Build target selects high-level environment: local, cloud-dev, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"cloud-dev"`

	// Derived or override driver: sqlite | postgres
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/intray.db"`

	// Generative model. An empty API key disables the model caller and the
	// service classifies with the keyword fallback instead.
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`

	// Classification
	TimeZone            string `envconfig:"TIME_ZONE" default:"Asia/Seoul"`
	MaxAnalysisAttempts int    `envconfig:"MAX_ANALYSIS_ATTEMPTS" default:"3"`
	AnalysisWorkers     int    `envconfig:"ANALYSIS_WORKERS" default:"4"`
	AnalysisQueueSize   int    `envconfig:"ANALYSIS_QUEUE_SIZE" default:"64"`

	// Default category vocabularies offered to the model when a user has
	// none stored. JSON array or comma-separated list.
	CalendarCategories string `envconfig:"CALENDAR_CATEGORIES" default:""`
	MemoCategories     string `envconfig:"MEMO_CATEGORIES" default:""`

	// Event stream
	StreamPingSeconds   int `envconfig:"STREAM_PING_SECONDS" default:"15"`
	StreamQueueCapacity int `envconfig:"STREAM_QUEUE_CAPACITY" default:"32"`

	// Upload targets
	NotionBaseURL   string `envconfig:"NOTION_BASE_URL" default:"https://api.notion.com"`
	CalendarBaseURL string `envconfig:"CALENDAR_BASE_URL" default:"https://www.googleapis.com"`

	// Retention sweeper
	RetentionEnabled      bool `envconfig:"RETENTION_ENABLED" default:"false"`
	RetentionMaxAgeDays   int  `envconfig:"RETENTION_MAX_AGE_DAYS" default:"30"`
	RetentionSweepSeconds int  `envconfig:"RETENTION_SWEEP_SECONDS" default:"3600"`

	// Health checking
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`

	DebugLogging bool `envconfig:"DEBUG_LOGGING" default:"false"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud-dev", "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a Config from the environment. A .env file in the working
// directory is loaded best-effort first; real environment variables win.
// Example: INTRAY_HTTP_PORT, INTRAY_GEMINI_API_KEY.
func New() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("INTRAY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("gemini_model", cfg.GeminiModel).
		Bool("gemini_key_present", cfg.GeminiAPIKey != "").
		Str("time_zone", cfg.TimeZone).
		Int("max_analysis_attempts", cfg.MaxAnalysisAttempts).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	cfg := &Config{
		BuildTarget:               "local",
		DBDriver:                  "sqlite",
		HTTPPort:                  8080,
		SQLitePath:                ":memory:",
		GeminiModel:               "gemini-2.0-flash",
		TimeZone:                  "Asia/Seoul",
		MaxAnalysisAttempts:       3,
		AnalysisWorkers:           2,
		AnalysisQueueSize:         16,
		StreamPingSeconds:         15,
		StreamQueueCapacity:       32,
		NotionBaseURL:             "https://api.notion.com",
		CalendarBaseURL:           "https://www.googleapis.com",
		RetentionMaxAgeDays:       30,
		RetentionSweepSeconds:     3600,
		HealthIntervalSeconds:     30,
		HealthProbeTimeoutSeconds: 2,
	}
	return cfg
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Location resolves TimeZone, falling back to UTC when it does not parse.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseCategoryList parses a vocabulary value permissively: a JSON string
// array first, falling back to comma splitting when that fails. Entries are
// trimmed and empties dropped.
func ParseCategoryList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		return compactList(arr)
	}
	return compactList(strings.Split(raw, ","))
}

func compactList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
