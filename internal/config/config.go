package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// DefaultFeedURL is the CTA customer alerts endpoint.
const DefaultFeedURL = "https://lapi.transitchicago.com/api/1.0/alerts.aspx"

// Config is the resolved runtime configuration.
type Config struct {
	FeedURL       string
	Accessibility bool

	// WebhookURL holds one or more endpoints separated by ";".
	// Empty means notifications are disabled.
	WebhookURL string

	Interval  time.Duration
	PostDelay time.Duration

	DBPath string

	NotifyOnProximity bool
	NotifyOnRemoval   bool

	LogLevel string
}

// fileConfig is the on-disk YAML shape. Durations are strings so the
// file can say "5m" / "90s"; env overrides are applied after parsing.
type fileConfig struct {
	FeedURL           string `yaml:"feed_url"`
	Accessibility     bool   `yaml:"accessibility"`
	WebhookURL        string `yaml:"webhook_url"`
	Interval          string `yaml:"interval"`
	PostDelay         string `yaml:"post_delay"`
	DBPath            string `yaml:"db_path"`
	NotifyOnProximity bool   `yaml:"notify_on_proximity"`
	NotifyOnRemoval   bool   `yaml:"notify_on_removal"`
	LogLevel          string `yaml:"log_level"`
}

// Load reads the config file (optional: a missing file yields defaults),
// applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// env-only deployment
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(&fc); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	interval, err := ParseDurationOrDefault("interval", fc.Interval, 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	postDelay, err := ParseDurationOrDefault("post_delay", fc.PostDelay, 2*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		FeedURL:           fc.FeedURL,
		Accessibility:     fc.Accessibility,
		WebhookURL:        fc.WebhookURL,
		Interval:          interval,
		PostDelay:         postDelay,
		DBPath:            fc.DBPath,
		NotifyOnProximity: fc.NotifyOnProximity,
		NotifyOnRemoval:   fc.NotifyOnRemoval,
		LogLevel:          fc.LogLevel,
	}
	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FeedURL == "" {
		c.FeedURL = DefaultFeedURL
	}
	if c.DBPath == "" {
		c.DBPath = "./data/ctawatch.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// applyEnv layers the environment surface over the file values.
// INTERVAL_MIN is minutes for compatibility with existing deployments.
func (c *Config) applyEnv() error {
	if v := os.Getenv("FEED_URL"); v != "" {
		c.FeedURL = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.WebhookURL = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("INTERVAL_MIN"); v != "" {
		mins, err := strconv.Atoi(v)
		if err != nil || mins <= 0 {
			return fmt.Errorf("INTERVAL_MIN: expected positive integer minutes, got %q", v)
		}
		c.Interval = time.Duration(mins) * time.Minute
	}
	return nil
}

func (c *Config) validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be > 0")
	}
	if c.PostDelay < 0 {
		return errors.New("post_delay must be >= 0")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	return nil
}
