package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hoanghai1803/citewatch/internal/ai"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Providers ProvidersConfig `toml:"providers"`
	Sentiment SentimentConfig `toml:"sentiment"`
	Generator GeneratorConfig `toml:"generator"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ProvidersConfig holds credentials for every completion provider. Base URLs
// are optional and override the public endpoints.
type ProvidersConfig struct {
	OpenAIAPIKey      string `toml:"openai_api_key"`
	OpenAIBaseURL     string `toml:"openai_base_url"`
	AnthropicAPIKey   string `toml:"anthropic_api_key"`
	AnthropicBaseURL  string `toml:"anthropic_base_url"`
	GoogleAPIKey      string `toml:"google_api_key"`
	GoogleBaseURL     string `toml:"google_base_url"`
	PerplexityAPIKey  string `toml:"perplexity_api_key"`
	PerplexityBaseURL string `toml:"perplexity_base_url"`
	XAIAPIKey         string `toml:"xai_api_key"`
	XAIBaseURL        string `toml:"xai_base_url"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request provider timeout.
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Clients returns the adapter settings for every provider.
func (p ProvidersConfig) Clients() map[ai.Provider]ai.ProviderConfig {
	client := func(key, baseURL string) ai.ProviderConfig {
		return ai.ProviderConfig{APIKey: key, BaseURL: baseURL, Timeout: p.Timeout()}
	}
	return map[ai.Provider]ai.ProviderConfig{
		ai.ProviderOpenAI:     client(p.OpenAIAPIKey, p.OpenAIBaseURL),
		ai.ProviderAnthropic:  client(p.AnthropicAPIKey, p.AnthropicBaseURL),
		ai.ProviderGoogle:     client(p.GoogleAPIKey, p.GoogleBaseURL),
		ai.ProviderPerplexity: client(p.PerplexityAPIKey, p.PerplexityBaseURL),
		ai.ProviderXAI:        client(p.XAIAPIKey, p.XAIBaseURL),
	}
}

// SentimentConfig holds brand sentiment settings.
type SentimentConfig struct {
	Model  string   `toml:"model"`
	Brands []string `toml:"brands"`
}

// GeneratorConfig holds prompt generator settings.
type GeneratorConfig struct {
	Model string `toml:"model"`
}

// SchedulerConfig holds the periodic runner settings.
type SchedulerConfig struct {
	Enabled         bool   `toml:"enabled"`
	IntervalMinutes int    `toml:"interval_minutes"`
	RunOnStart      bool   `toml:"run_on_start"`
	Timezone        string `toml:"timezone"`
}

// Interval returns the due-check period.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Location resolves Timezone. "Local" and "" use the process zone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

const defaultConfigContent = `[server]
port = 3000

[database]
path = "citewatch.db"

[providers]
openai_api_key = ""               # or set OPENAI_API_KEY
anthropic_api_key = ""            # or set ANTHROPIC_API_KEY
google_api_key = ""               # or set GOOGLE_API_KEY
perplexity_api_key = ""           # or set PERPLEXITY_API_KEY
xai_api_key = ""                  # or set XAI_API_KEY
timeout_seconds = 300

[sentiment]
model = "gpt-4.1-nano"
brands = ["Timescale", "TigerData"]

[generator]
model = "gpt-4.1-mini"

[scheduler]
enabled = true
interval_minutes = 5
run_on_start = true
timezone = "Local"
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Explicit values are checked before defaults fill zeros, so "port = 0"
	// is an error rather than the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("providers", "timeout_seconds") && cfg.Providers.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid providers.timeout_seconds %d: must be >= 1", cfg.Providers.TimeoutSeconds)
	}
	if md.IsDefined("scheduler", "interval_minutes") && cfg.Scheduler.IntervalMinutes < 1 {
		return fmt.Errorf("invalid scheduler.interval_minutes %d: must be >= 1", cfg.Scheduler.IntervalMinutes)
	}
	return nil
}

// applyDefaults fills unset fields. Booleans default to true only when the
// key is absent, so an explicit false is respected.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "citewatch.db"
	}
	if cfg.Providers.TimeoutSeconds == 0 {
		cfg.Providers.TimeoutSeconds = 300
	}
	if cfg.Sentiment.Model == "" {
		cfg.Sentiment.Model = "gpt-4.1-nano"
	}
	if !md.IsDefined("sentiment", "brands") {
		cfg.Sentiment.Brands = []string{"Timescale", "TigerData"}
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4.1-mini"
	}
	if !md.IsDefined("scheduler", "enabled") {
		cfg.Scheduler.Enabled = true
	}
	if cfg.Scheduler.IntervalMinutes == 0 {
		cfg.Scheduler.IntervalMinutes = 5
	}
	if !md.IsDefined("scheduler", "run_on_start") {
		cfg.Scheduler.RunOnStart = true
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Local"
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
func applyEnvOverrides(cfg *Config) error {
	keys := []struct {
		env  string
		dest *string
	}{
		{"OPENAI_API_KEY", &cfg.Providers.OpenAIAPIKey},
		{"ANTHROPIC_API_KEY", &cfg.Providers.AnthropicAPIKey},
		{"GOOGLE_API_KEY", &cfg.Providers.GoogleAPIKey},
		{"PERPLEXITY_API_KEY", &cfg.Providers.PerplexityAPIKey},
		{"XAI_API_KEY", &cfg.Providers.XAIAPIKey},
	}
	for _, k := range keys {
		if v := os.Getenv(k.env); v != "" {
			*k.dest = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	if _, err := cfg.Scheduler.Location(); err != nil {
		return fmt.Errorf("invalid scheduler.timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	missing := map[string]string{
		"openai":     cfg.Providers.OpenAIAPIKey,
		"anthropic":  cfg.Providers.AnthropicAPIKey,
		"google":     cfg.Providers.GoogleAPIKey,
		"perplexity": cfg.Providers.PerplexityAPIKey,
		"xai":        cfg.Providers.XAIAPIKey,
	}
	for provider, key := range missing {
		if key == "" {
			slog.Warn("provider API key is empty: calls to its models will fail", "provider", provider)
		}
	}
	if cfg.Providers.OpenAIAPIKey == "" {
		slog.Warn("openai_api_key is empty: brand sentiment and prompt generation are unavailable")
	}

	return nil
}
