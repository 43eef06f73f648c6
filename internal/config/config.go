package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	LLM      LLMConfig      `json:"llm"      envPrefix:"ASKDUCK_"`
	Database DatabaseConfig `json:"database" envPrefix:"ASKDUCK_"`
	Pipeline PipelineConfig `json:"pipeline" envPrefix:"ASKDUCK_"`
	Logging  LoggingConfig  `json:"logging"  envPrefix:"ASKDUCK_"`
}

// LLMConfig configures the language model endpoint
type LLMConfig struct {
	BaseURL        string  `json:"base_url"        env:"LLM_BASE_URL"        envDefault:"https://api.openai.com/v1"`
	APIKey         string  `json:"api_key"         env:"LLM_API_KEY"`
	Model          string  `json:"model"           env:"LLM_MODEL"           envDefault:"gpt-4o-mini"`
	MaxTokens      int     `json:"max_tokens"      env:"LLM_MAX_TOKENS"      envDefault:"4000"`
	Temperature    float64 `json:"temperature"     env:"LLM_TEMPERATURE"     envDefault:"0.0"`
	RequestTimeout string  `json:"request_timeout" env:"LLM_REQUEST_TIMEOUT" envDefault:"60s"`
}

// DatabaseConfig configures the DuckDB engine
type DatabaseConfig struct {
	Path         string `json:"path"          env:"DB_PATH"          envDefault:":memory:"`
	QueryTimeout string `json:"query_timeout" env:"DB_QUERY_TIMEOUT" envDefault:"30s"`
}

// PipelineConfig configures the generate-validate-execute loop
type PipelineConfig struct {
	MaxAttempts      int    `json:"max_attempts"      env:"MAX_ATTEMPTS"      envDefault:"3"`
	TransientRetries int    `json:"transient_retries" env:"TRANSIENT_RETRIES" envDefault:"3"`
	BackoffBase      string `json:"backoff_base"      env:"BACKOFF_BASE"      envDefault:"1s"`
	IncludeExamples  bool   `json:"include_examples"  env:"INCLUDE_EXAMPLES"  envDefault:"true"`
	RowLimit         int    `json:"row_limit"         env:"ROW_LIMIT"         envDefault:"1000"`

	// Complexity scoring policy. The weights mirror the shape of the
	// generated query, not execution cost.
	JoinWeight      int `json:"join_weight"      env:"JOIN_WEIGHT"      envDefault:"2"`
	SubqueryWeight  int `json:"subquery_weight"  env:"SUBQUERY_WEIGHT"  envDefault:"3"`
	AggregateWeight int `json:"aggregate_weight" env:"AGGREGATE_WEIGHT" envDefault:"1"`
	PredicateWeight int `json:"predicate_weight" env:"PREDICATE_WEIGHT" envDefault:"1"`
	LowThreshold    int `json:"low_threshold"    env:"LOW_THRESHOLD"    envDefault:"2"`
	MediumThreshold int `json:"medium_threshold" env:"MEDIUM_THRESHOLD" envDefault:"6"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr
}

// Load loads configuration from a .env file (if present) and the environment
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2, got %v", cfg.LLM.Temperature)
	}

	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm max_tokens must be positive, got %d", cfg.LLM.MaxTokens)
	}

	if cfg.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline max_attempts must be at least 1, got %d", cfg.Pipeline.MaxAttempts)
	}

	if cfg.Pipeline.TransientRetries < 0 {
		return fmt.Errorf("pipeline transient_retries must not be negative, got %d", cfg.Pipeline.TransientRetries)
	}

	if cfg.Pipeline.LowThreshold >= cfg.Pipeline.MediumThreshold {
		return fmt.Errorf("pipeline low_threshold (%d) must be below medium_threshold (%d)",
			cfg.Pipeline.LowThreshold, cfg.Pipeline.MediumThreshold)
	}

	for name, value := range map[string]string{
		"llm request_timeout":   cfg.LLM.RequestTimeout,
		"db query_timeout":      cfg.Database.QueryTimeout,
		"pipeline backoff_base": cfg.Pipeline.BackoffBase,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s is not a valid duration: %w", name, err)
		}
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	return nil
}

// Timeout returns the parsed LLM request timeout
func (c LLMConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 60 * time.Second
	}

	return d
}

// Timeout returns the parsed query timeout
func (c DatabaseConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// Backoff returns the parsed backoff base delay
func (c PipelineConfig) Backoff() time.Duration {
	d, err := time.ParseDuration(c.BackoffBase)
	if err != nil {
		return time.Second
	}

	return d
}
