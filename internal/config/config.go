// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, an optional YAML file named by
// HANDRECON_CONFIG, then HANDRECON_* environment variables (a .env file is read
// first and never overrides variables already set).
package config

import (
	"context"
	"fmt"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the remembered hand submissions.
	DedupeSize int `koanf:"dedupe_size"`

	// ShutdownTimeoutMS bounds graceful HTTP shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// MatchThreshold and MatchTopN configure roster name resolution.
	MatchThreshold int `koanf:"match_threshold"`
	MatchTopN      int `koanf:"match_top_n"`

	// Roster seeds the known player names.
	Roster []string `koanf:"roster"`

	// DatabaseURL selects the Postgres store; empty keeps records in memory.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables completion events on RedisChannel.
	RedisURL        string `koanf:"redis_url"`
	RedisChannel    string `koanf:"redis_channel"`
	RedisMaxRetries int    `koanf:"redis_max_retries"`

	// S3 settings for fetching completed batch results.
	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3PathStyle bool   `koanf:"s3_path_style"`

	// Vision extraction endpoint (OpenAI-compatible chat completions).
	VisionBaseURL         string  `koanf:"vision_base_url"`
	VisionAPIKey          string  `koanf:"vision_api_key"`
	VisionModel           string  `koanf:"vision_model"`
	VisionTimeoutMS       int     `koanf:"vision_timeout_ms"`
	VisionBatchSize       int     `koanf:"vision_batch_size"`
	VisionCostPer1KTokens float64 `koanf:"vision_cost_per_1k_tokens"`
}

// New returns a Config with defaults. The context is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         1_000,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        50_000,
		ShutdownTimeoutMS: 10_000,
		MatchThreshold:    70,
		MatchTopN:         3,
		RedisChannel:      "hands.analyzed",
		RedisMaxRetries:   3,
		S3Region:          "us-east-1",
		VisionBaseURL:     "https://api.openai.com/v1",
		VisionModel:       "gpt-4o-mini",
		VisionTimeoutMS:   60_000,
		VisionBatchSize:   8,
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MatchThreshold < 0 || c.MatchThreshold > 100:
		return fmt.Errorf("%w: match_threshold must be within 0..100", ErrInvalidConfig)
	case c.MatchTopN <= 0:
		return fmt.Errorf("%w: match_top_n must be positive", ErrInvalidConfig)
	case c.VisionBatchSize <= 0:
		return fmt.Errorf("%w: vision_batch_size must be positive", ErrInvalidConfig)
	case c.VisionCostPer1KTokens < 0:
		return fmt.Errorf("%w: vision_cost_per_1k_tokens must not be negative", ErrInvalidConfig)
	}
	return nil
}
