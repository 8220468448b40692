// Package config loads and validates sync configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Wiki    WikiConfig    `mapstructure:"wiki"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Run     RunConfig     `mapstructure:"run"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScrapeConfig governs the headless extraction session.
type ScrapeConfig struct {
	URL           string `mapstructure:"url"`
	IconBaseURL   string `mapstructure:"icon_base_url"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	RenderDelayMs int    `mapstructure:"render_delay_ms"`
	ClickDelayMs  int    `mapstructure:"click_delay_ms"`
}

// WikiConfig governs enrichment fetches against the wiki.
type WikiConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Concurrency int    `mapstructure:"concurrency"`
}

// HTTPConfig configures the validated fetcher and its retry policy.
type HTTPConfig struct {
	UserAgent        string   `mapstructure:"user_agent"`
	AllowedHosts     []string `mapstructure:"allowed_hosts"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds"`
	MaxRetries       int      `mapstructure:"max_retries"`
	BackoffInitialMs int      `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int      `mapstructure:"backoff_max_ms"`
	MaxBodyBytes     int64    `mapstructure:"max_body_bytes"`
	RateLimitMs      int      `mapstructure:"rate_limit_ms"`
}

// StoreConfig sets where the working snapshot and dist package live.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
	DistDir string `mapstructure:"dist_dir"`
}

// RunConfig bounds a whole sync run.
type RunConfig struct {
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
	ForceRefetch   bool `mapstructure:"force_refetch"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOTCSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scrape.url", "https://script.bloodontheclocktower.com/")
	v.SetDefault("scrape.icon_base_url", "https://script.bloodontheclocktower.com/")
	v.SetDefault("scrape.nav_timeout_seconds", 60)
	v.SetDefault("scrape.render_delay_ms", 2000)
	v.SetDefault("scrape.click_delay_ms", 500)
	v.SetDefault("wiki.base_url", "https://wiki.bloodontheclocktower.com")
	v.SetDefault("wiki.concurrency", 5)
	v.SetDefault("http.user_agent", "botc-data-sync/1.0 (+https://github.com/phauks/botc-data-sync)")
	v.SetDefault("http.allowed_hosts", []string{
		"wiki.bloodontheclocktower.com",
		"script.bloodontheclocktower.com",
	})
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 30000)
	v.SetDefault("http.max_body_bytes", int64(10)<<20)
	v.SetDefault("http.rate_limit_ms", 1000)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.dist_dir", "dist")
	v.SetDefault("run.timeout_seconds", 1800)
	v.SetDefault("run.force_refetch", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scrape.URL == "" {
		return fmt.Errorf("scrape.url must be set")
	}
	if c.Wiki.Concurrency <= 0 {
		return fmt.Errorf("wiki.concurrency must be > 0")
	}
	if len(c.HTTP.AllowedHosts) == 0 {
		return fmt.Errorf("http.allowed_hosts must not be empty")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0")
	}
	if c.Store.DataDir == "" || c.Store.DistDir == "" {
		return fmt.Errorf("store.data_dir and store.dist_dir must be set")
	}
	if c.Run.TimeoutSeconds <= 0 {
		return fmt.Errorf("run.timeout_seconds must be > 0")
	}
	return nil
}

// RunBudget is the wall-clock bound for one sync run.
func (c Config) RunBudget() time.Duration {
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}

// HTTPTimeout is the per-request timeout for the fetcher.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
