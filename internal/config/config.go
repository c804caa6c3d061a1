package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emilyfeng/viralscope/pkg/engine"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Engine    EngineConfig    `yaml:"engine"`
	Sources   SourcesConfig   `yaml:"sources"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Notify    NotifyConfig    `yaml:"notify"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig configures ingest and labeling intervals for daemon
// mode.
type ScheduleConfig struct {
	IngestInterval string `yaml:"ingest_interval"`
	LabelInterval  string `yaml:"label_interval"`
}

// ParseIngestInterval returns the ingest interval as time.Duration.
func (s ScheduleConfig) ParseIngestInterval() time.Duration {
	d, err := time.ParseDuration(s.IngestInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// ParseLabelInterval returns the labeling interval as time.Duration.
func (s ScheduleConfig) ParseLabelInterval() time.Duration {
	d, err := time.ParseDuration(s.LabelInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// EngineConfig exposes the labeling constants.
type EngineConfig struct {
	Window      int     `yaml:"window"`
	Multiplier  float64 `yaml:"multiplier"`
	MaxPosts    int     `yaml:"max_posts"`
	MinPosts    int     `yaml:"min_posts"`
	TopFraction float64 `yaml:"top_fraction"`
	// UsePercentileFallback labels posts without a rolling baseline
	// against the dataset's calibrated cutoff instead of leaving them
	// non-viral.
	UsePercentileFallback bool `yaml:"use_percentile_fallback"`
}

// EngineSettings converts the YAML block to the engine's config. The
// fallback threshold, when enabled, is resolved at labeling time from
// the latest calibration; here it starts disabled.
func (e EngineConfig) EngineSettings() engine.Config {
	cfg := engine.DefaultConfig()
	if e.Window > 0 {
		cfg.Window = e.Window
	}
	if e.Multiplier > 0 {
		cfg.Multiplier = e.Multiplier
	}
	if e.MaxPosts > 0 {
		cfg.MaxPosts = e.MaxPosts
	}
	if e.MinPosts > 0 {
		cfg.MinPosts = e.MinPosts
	}
	cfg.FallbackThreshold = math.NaN()
	return cfg
}

// SourcesConfig holds configuration for all ingestion sources.
type SourcesConfig struct {
	Files []FileSourceConfig `yaml:"files"`
	Apify ApifyConfig        `yaml:"apify"`
	Feeds FeedConfig         `yaml:"feeds"`
}

// FileSourceConfig is one on-disk dataset export.
type FileSourceConfig struct {
	Path    string `yaml:"path"`
	Dataset string `yaml:"dataset"`
}

// ApifyConfig for the scraper dataset client.
type ApifyConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	DatasetID string `yaml:"dataset_id"`
	Dataset   string `yaml:"dataset"`
}

// FeedConfig for the RSS bridge collector.
type FeedConfig struct {
	Enabled   bool     `yaml:"enabled"`
	BridgeURL string   `yaml:"bridge_url"`
	Accounts  []string `yaml:"accounts"`
	Dataset   string   `yaml:"dataset"`
}

// WarehouseConfig for the Postgres export target.
type WarehouseConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
}

// NotifyConfig configures run-summary destinations.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook notifications.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook notifications.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook notifications.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config with production defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./viralscope.db"},
		Schedule: ScheduleConfig{
			IngestInterval: "6h",
			LabelInterval:  "12h",
		},
		Engine: EngineConfig{
			Window:      50,
			Multiplier:  1.15,
			MaxPosts:    50,
			MinPosts:    1,
			TopFraction: 0.2,
		},
		Sources: SourcesConfig{
			Apify: ApifyConfig{Dataset: "organic"},
			Feeds: FeedConfig{Dataset: "organic"},
		},
		Warehouse: WarehouseConfig{Table: "labeled_posts"},
		Server:    ServerConfig{Port: 8080},
		Logging:   LoggingConfig{Level: "info", Pretty: true},
	}
}

// Load reads configuration from a YAML file and applies env var
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VIRALSCOPE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("APIFY_TOKEN"); v != "" {
		cfg.Sources.Apify.Token = v
		cfg.Sources.Apify.Enabled = true
	}
	if v := os.Getenv("WAREHOUSE_DSN"); v != "" {
		cfg.Warehouse.DSN = v
		cfg.Warehouse.Enabled = true
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notify.Slack.WebhookURL = v
		cfg.Notify.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Notify.Discord.WebhookURL = v
		cfg.Notify.Discord.Enabled = true
	}
}
