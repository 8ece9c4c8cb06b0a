// Package config defines the configuration structures for the
// SuburbROI-Intelligence toolkit.  No I/O happens here, only plain data types
// and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds the scenario API server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORSAllowedOrigins empty disables CORS headers.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	// RateLimitRPS <= 0 disables per-client rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// UpstreamConfig points at the ROI prediction and metadata API.
type UpstreamConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
}

// RedisConfig holds the metadata cache connection parameters.  An empty Addr
// disables caching.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	MetadataTTL  time.Duration `mapstructure:"metadata_ttl"`
}

// Enabled reports whether a cache address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// KafkaConfig holds the prediction event producer parameters.
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	PredictionTopic string        `mapstructure:"prediction_topic"`
	Acks            string        `mapstructure:"acks"` // "none" | "one" | "all"
	Compression     string        `mapstructure:"compression"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Path                 string `mapstructure:"path"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// ScenarioConfig carries the defaults of the scenario and query builders.
// Report exports reuse the listing query, so there is no separate report top-N.
type ScenarioConfig struct {
	ListingTopN           int           `mapstructure:"listing_top_n"`
	OpportunitiesTopN     int           `mapstructure:"opportunities_top_n"`
	NearestTopN           int           `mapstructure:"nearest_top_n"`
	DefaultActiveFeatures int           `mapstructure:"default_active_features"`
	NoticeTTL             time.Duration `mapstructure:"notice_ttl"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Upstream UpstreamConfig    `mapstructure:"upstream"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Log      logging.LogConfig `mapstructure:"log"`
	Scenario ScenarioConfig    `mapstructure:"scenario"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("config: server.rate_limit_burst must be ≥ 1 when rate limiting is enabled")
	}

	// Upstream
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("config: upstream.base_url is required")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: upstream.base_url %q must be an absolute http(s) URL", c.Upstream.BaseURL)
	}
	if c.Upstream.RetryMax < 0 {
		return fmt.Errorf("config: upstream.retry_max must be ≥ 0, got %d", c.Upstream.RetryMax)
	}

	// Redis
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.PredictionTopic == "" {
			return fmt.Errorf("config: kafka.prediction_topic is required when kafka is enabled")
		}
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	// Scenario
	for name, n := range map[string]int{
		"listing_top_n":       c.Scenario.ListingTopN,
		"opportunities_top_n": c.Scenario.OpportunitiesTopN,
	} {
		if n < MinTopN || n > MaxTopN {
			return fmt.Errorf("config: scenario.%s %d is out of range [%d, %d]", name, n, MinTopN, MaxTopN)
		}
	}
	if c.Scenario.NearestTopN < 1 {
		return fmt.Errorf("config: scenario.nearest_top_n must be ≥ 1, got %d", c.Scenario.NearestTopN)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
