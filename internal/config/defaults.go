package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8090
	DefaultServerMode = "release"

	DefaultUpstreamBaseURL = "http://localhost:8000"
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultUpstreamRetries = 3

	DefaultRedisKeyPrefix   = "suburb-roi:"
	DefaultRedisMetadataTTL = 10 * time.Minute

	DefaultKafkaPredictionTopic = "suburb-roi.predictions"

	DefaultMetricsNamespace = "suburb_roi"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Top-N bounds shared by the listing and opportunities queries.
	MinTopN = 5
	MaxTopN = 200

	DefaultListingTopN           = 30
	DefaultOpportunitiesTopN     = 20
	DefaultNearestTopN           = 5
	DefaultActiveFeatureCount    = 6
	DefaultNoticeTTL             = 3 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
)

// ApplyDefaults fills every zero-value field in cfg.  Explicitly configured
// values are left untouched.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = int(cfg.Server.RateLimitRPS*2) + 1
	}

	// ── Upstream ──────────────────────────────────────────────────────────────
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.RetryMax == 0 {
		cfg.Upstream.RetryMax = DefaultUpstreamRetries
	}
	if cfg.Upstream.RetryWaitMin == 0 {
		cfg.Upstream.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.Upstream.RetryWaitMax == 0 {
		cfg.Upstream.RetryWaitMax = 5 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	// Addr stays empty unless configured; an empty address disables the cache.
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.MetadataTTL == 0 {
		cfg.Redis.MetadataTTL = DefaultRedisMetadataTTL
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if cfg.Kafka.PredictionTopic == "" {
		cfg.Kafka.PredictionTopic = DefaultKafkaPredictionTopic
	}
	if cfg.Kafka.Acks == "" {
		cfg.Kafka.Acks = "one"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Scenario ──────────────────────────────────────────────────────────────
	if cfg.Scenario.ListingTopN == 0 {
		cfg.Scenario.ListingTopN = DefaultListingTopN
	}
	if cfg.Scenario.OpportunitiesTopN == 0 {
		cfg.Scenario.OpportunitiesTopN = DefaultOpportunitiesTopN
	}
	if cfg.Scenario.NearestTopN == 0 {
		cfg.Scenario.NearestTopN = DefaultNearestTopN
	}
	if cfg.Scenario.DefaultActiveFeatures == 0 {
		cfg.Scenario.DefaultActiveFeatures = DefaultActiveFeatureCount
	}
	if cfg.Scenario.NoticeTTL == 0 {
		cfg.Scenario.NoticeTTL = DefaultNoticeTTL
	}
}

// NewDefaultConfig returns a Config populated only with defaults.  It always
// passes Validate.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
