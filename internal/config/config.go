package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingTimeout    time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"15s"`
	// EmbeddingRateLimit is provider requests per second; 0 disables limiting.
	EmbeddingRateLimit float64 `envconfig:"EMBEDDING_RATE_LIMIT" default:"0"`

	EmbeddingCacheMaxBytes int64         `envconfig:"EMBEDDING_CACHE_MAX_BYTES" default:"67108864"`
	EmbeddingCacheTTL      time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"24h"`
	EmbeddingCachePersist  bool          `envconfig:"EMBEDDING_CACHE_PERSIST" default:"false"`

	DetectConcurrency     int     `envconfig:"DETECT_CONCURRENCY" default:"8"`
	InteractiveThreshold  float64 `envconfig:"INTERACTIVE_THRESHOLD" default:"0.85"`
	BackgroundThreshold   float64 `envconfig:"BACKGROUND_THRESHOLD" default:"0.80"`
	InteractiveWindowDays int     `envconfig:"INTERACTIVE_WINDOW_DAYS" default:"30"`
	BackgroundWindowDays  int     `envconfig:"BACKGROUND_WINDOW_DAYS" default:"90"`
	CandidateLimit        int     `envconfig:"CANDIDATE_LIMIT" default:"100"`
	DuplicateResultLimit  int     `envconfig:"DUPLICATE_RESULT_LIMIT" default:"5"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"10s"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TASKPRIORITY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) validate() error {
	for name, v := range map[string]float64{
		"INTERACTIVE_THRESHOLD": c.InteractiveThreshold,
		"BACKGROUND_THRESHOLD":  c.BackgroundThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}
	if c.DetectConcurrency < 1 {
		return fmt.Errorf("DETECT_CONCURRENCY must be at least 1, got %d", c.DetectConcurrency)
	}
	if c.InteractiveWindowDays < 1 || c.BackgroundWindowDays < 1 {
		return fmt.Errorf("detection windows must be at least one day")
	}
	return nil
}
