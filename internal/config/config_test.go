package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout())

	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Database.Timeout())

	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 3, cfg.Pipeline.TransientRetries)
	assert.Equal(t, time.Second, cfg.Pipeline.Backoff())
	assert.True(t, cfg.Pipeline.IncludeExamples)
	assert.Equal(t, 2, cfg.Pipeline.JoinWeight)
	assert.Equal(t, 3, cfg.Pipeline.SubqueryWeight)
	assert.Equal(t, 2, cfg.Pipeline.LowThreshold)
	assert.Equal(t, 6, cfg.Pipeline.MediumThreshold)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ASKDUCK_LLM_MODEL", "llama3")
	t.Setenv("ASKDUCK_LLM_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("ASKDUCK_MAX_ATTEMPTS", "5")
	t.Setenv("ASKDUCK_DB_PATH", "/tmp/askduck.db")
	t.Setenv("ASKDUCK_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, "/tmp/askduck.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantMsg string
	}{
		{"temperature too high", "ASKDUCK_LLM_TEMPERATURE", "3.5", "temperature"},
		{"zero max tokens", "ASKDUCK_LLM_MAX_TOKENS", "0", "max_tokens"},
		{"zero attempts", "ASKDUCK_MAX_ATTEMPTS", "0", "max_attempts"},
		{"negative transient retries", "ASKDUCK_TRANSIENT_RETRIES", "-1", "transient_retries"},
		{"bad duration", "ASKDUCK_DB_QUERY_TIMEOUT", "thirty seconds", "duration"},
		{"bad log level", "ASKDUCK_LOG_LEVEL", "loud", "log level"},
		{"inverted thresholds", "ASKDUCK_LOW_THRESHOLD", "10", "low_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	assert.Equal(t, 60*time.Second, LLMConfig{RequestTimeout: "garbage"}.Timeout())
	assert.Equal(t, 30*time.Second, DatabaseConfig{QueryTimeout: ""}.Timeout())
	assert.Equal(t, time.Second, PipelineConfig{BackoffBase: "x"}.Backoff())
	assert.Equal(t, 250*time.Millisecond, PipelineConfig{BackoffBase: "250ms"}.Backoff())
}
