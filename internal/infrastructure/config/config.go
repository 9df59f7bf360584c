package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Model providers understood by the llm package
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Retrieval RetrievalConfig
	Model     ModelConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins  []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	TTL time.Duration `envconfig:"SESSION_TTL" default:"10m"`
	// ReapInterval is the sweep period. Zero means TTL/10.
	ReapInterval time.Duration `envconfig:"SESSION_REAP_INTERVAL" default:"0"`
}

// Interval returns the effective sweep period
func (s SessionConfig) Interval() time.Duration {
	if s.ReapInterval > 0 {
		return s.ReapInterval
	}
	return s.TTL / 10
}

// RetrievalConfig holds document retrieval settings.
type RetrievalConfig struct {
	URL          string        `envconfig:"RETRIEVAL_URL" default:"http://localhost:8001"`
	TopK         int           `envconfig:"RETRIEVAL_TOP_K" default:"3"`
	SnippetChars int           `envconfig:"RETRIEVAL_SNIPPET_CHARS" default:"800"`
	Timeout      time.Duration `envconfig:"RETRIEVAL_TIMEOUT" default:"10s"`
}

// ModelConfig holds language model settings.
type ModelConfig struct {
	Provider    string        `envconfig:"MODEL_PROVIDER" default:"openai"`
	BaseURL     string        `envconfig:"MODEL_BASE_URL" default:"https://api.groq.com/openai/v1"`
	APIKey      string        `envconfig:"MODEL_API_KEY"`
	GroqAPIKey  string        `envconfig:"GROQ_API_KEY"`
	Name        string        `envconfig:"MODEL_NAME" default:"qwen/qwen3-32b"`
	Temperature float64       `envconfig:"MODEL_TEMPERATURE" default:"0"`
	MaxTokens   int64         `envconfig:"MODEL_MAX_TOKENS" default:"512"`
	Timeout     time.Duration `envconfig:"MODEL_TIMEOUT" default:"60s"`
	PromptFile  string        `envconfig:"PROMPT_FILE"`
}

// Key returns the API key, falling back to GROQ_API_KEY
func (m ModelConfig) Key() string {
	if m.APIKey != "" {
		return m.APIKey
	}
	return m.GroqAPIKey
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Session: SessionConfig{
			TTL:          10 * time.Minute,
			ReapInterval: 0,
		},
		Retrieval: RetrievalConfig{
			URL:          "http://localhost:8001",
			TopK:         3,
			SnippetChars: 800,
			Timeout:      10 * time.Second,
		},
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://api.groq.com/openai/v1",
			Name:        "qwen/qwen3-32b",
			Temperature: 0,
			MaxTokens:   512,
			Timeout:     60 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			Enabled:           true,
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL))
	}
	if c.Session.ReapInterval < 0 {
		errs = append(errs, fmt.Errorf("SESSION_REAP_INTERVAL must not be negative, got %s", c.Session.ReapInterval))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.SnippetChars <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_SNIPPET_CHARS must be positive, got %d", c.Retrieval.SnippetChars))
	}
	if c.Model.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("MODEL_MAX_TOKENS must be positive, got %d", c.Model.MaxTokens))
	}
	switch strings.ToLower(c.Model.Provider) {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("MODEL_PROVIDER %q is not supported", c.Model.Provider))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be positive when rate limiting is enabled"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
