// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ot-clark/llm-rank-diagnostic/llm"
)

// Config holds the full service configuration.
type Config struct {
	Port                string          `yaml:"port"`
	DataDir             string          `yaml:"data_dir"`
	HistoryPath         string          `yaml:"history_path"`
	FetchTimeoutSeconds int             `yaml:"fetch_timeout_seconds"`
	CacheTTLMinutes     int             `yaml:"cache_ttl_minutes"`
	RateLimit           RateLimitConfig `yaml:"rate_limit"`
	Crawl               CrawlConfig     `yaml:"crawl"`
	LLM                 LLMConfig       `yaml:"llm"`
}

// RateLimitConfig configures the per-IP token bucket.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     float64 `yaml:"burst"`
}

// CrawlConfig configures site crawls.
type CrawlConfig struct {
	MaxPages     int `yaml:"max_pages"`
	DelaySeconds int `yaml:"delay_seconds"`
}

// LLMConfig configures the grading client. An empty API key disables the
// remote path entirely.
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Default returns sane defaults.
func Default() *Config {
	return &Config{
		Port:                "8082",
		DataDir:             "data",
		HistoryPath:         "data/history.db",
		FetchTimeoutSeconds: 15,
		CacheTTLMinutes:     30,
		RateLimit:           RateLimitConfig{PerSecond: 2, Burst: 5},
		Crawl:               CrawlConfig{MaxPages: 10, DelaySeconds: 1},
		LLM: LLMConfig{
			Model:          "gpt-4",
			Temperature:    0.3,
			MaxTokens:      2000,
			TimeoutSeconds: 60,
		},
	}
}

// Load reads a YAML config file, merges it over the defaults and applies
// environment overrides. An empty path skips the file entirely.
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
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv lets environment variables win over file values. The .env file,
// when present, is loaded into the environment before this runs.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("HISTORY_PATH"); v != "" {
		c.HistoryPath = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch_timeout_seconds must be > 0")
	}
	if c.CacheTTLMinutes <= 0 {
		return fmt.Errorf("cache_ttl_minutes must be > 0")
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit values must be > 0")
	}
	return nil
}

// FetchTimeout returns the page fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// CacheTTL returns the report cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// CrawlDelay returns the pause between crawled pages.
func (c *Config) CrawlDelay() time.Duration {
	return time.Duration(c.Crawl.DelaySeconds) * time.Second
}

// LLMClientConfig converts the section into the grading client's config.
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		Timeout:     time.Duration(c.LLM.TimeoutSeconds) * time.Second,
	}
}
