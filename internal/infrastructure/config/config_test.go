package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())

	// Session config
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Zero(t, cfg.Session.ReapInterval)
	assert.Equal(t, time.Minute, cfg.Session.Interval())

	// Retrieval config
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 800, cfg.Retrieval.SnippetChars)

	// Model config
	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, "qwen/qwen3-32b", cfg.Model.Name)
	assert.Equal(t, 0.0, cfg.Model.Temperature)
	assert.Equal(t, int64(512), cfg.Model.MaxTokens)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Session, cfg.Session)
	assert.Equal(t, def.Retrieval, cfg.Retrieval)
	assert.Equal(t, def.Model, cfg.Model)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"SHUTDOWN_TIMEOUT":        "3s",
		"SESSION_TTL":             "30m",
		"SESSION_REAP_INTERVAL":   "15s",
		"RETRIEVAL_URL":           "http://search:9200",
		"RETRIEVAL_TOP_K":         "5",
		"RETRIEVAL_SNIPPET_CHARS": "400",
		"MODEL_PROVIDER":          "anthropic",
		"MODEL_NAME":              "claude-sonnet-4-5",
		"MODEL_TEMPERATURE":       "0.3",
		"MODEL_MAX_TOKENS":        "1024",
		"PROMPT_FILE":             "/etc/echo/prompts.yaml",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_RPS":          "50",
		"RATE_LIMIT_BURST":        "100",
		"RATE_LIMIT_ENABLED":      "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 15*time.Second, cfg.Session.ReapInterval)

	assert.Equal(t, "http://search:9200", cfg.Retrieval.URL)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 400, cfg.Retrieval.SnippetChars)

	assert.Equal(t, ProviderAnthropic, cfg.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model.Name)
	assert.InDelta(t, 0.3, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, int64(1024), cfg.Model.MaxTokens)
	assert.Equal(t, "/etc/echo/prompts.yaml", cfg.Model.PromptFile)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 50, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestReapIntervalFollowsTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Session.ReapInterval)
	assert.Equal(t, 3*time.Second, cfg.Session.Interval())

	t.Setenv("SESSION_REAP_INTERVAL", "500ms")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.Interval())
}

func TestCORSOriginsList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://localhost:3000,https://echo.example.org")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://echo.example.org"}, cfg.Server.AllowedOrigins)
}

func TestModelKeyFallback(t *testing.T) {
	m := ModelConfig{GroqAPIKey: "gsk_test"}
	assert.Equal(t, "gsk_test", m.Key())

	m.APIKey = "sk_primary"
	assert.Equal(t, "sk_primary", m.Key())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.Session.TTL = 0 },
			wantErr: "SESSION_TTL",
		},
		{
			name:    "negative reap interval",
			mutate:  func(c *Config) { c.Session.ReapInterval = -time.Second },
			wantErr: "SESSION_REAP_INTERVAL",
		},
		{
			name:    "zero snippet budget",
			mutate:  func(c *Config) { c.Retrieval.SnippetChars = 0 },
			wantErr: "RETRIEVAL_SNIPPET_CHARS",
		},
		{
			name:    "zero top k",
			mutate:  func(c *Config) { c.Retrieval.TopK = 0 },
			wantErr: "RETRIEVAL_TOP_K",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Model.Provider = "llamafile" },
			wantErr: "MODEL_PROVIDER",
		},
		{
			name:    "rate limit without rps",
			mutate:  func(c *Config) { c.RateLimit.RequestsPerSecond = 0 },
			wantErr: "RATE_LIMIT_RPS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("SESSION_TTL", "0s")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
}

func TestLoadRejectsMalformed(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "three")

	_, err := Load()
	assert.Error(t, err)
}
