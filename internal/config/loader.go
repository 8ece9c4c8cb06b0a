package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "ROI"

// newViper builds a Viper instance with YAML file type, ROI_ env prefix,
// automatic env binding and a "." → "_" key replacer, so "upstream.base_url"
// resolves to ROI_UPSTREAM_BASE_URL.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Booleans cannot be defaulted after unmarshalling, and AutomaticEnv only
	// sees keys viper already knows about.
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("kafka.enabled", false)
	for _, key := range []string{
		"server.port", "server.mode", "server.rate_limit_rps", "server.rate_limit_burst",
		"upstream.base_url", "upstream.api_key", "upstream.timeout", "upstream.retry_max",
		"redis.addr", "redis.password", "redis.db", "redis.key_prefix", "redis.metadata_ttl",
		"kafka.brokers", "kafka.prediction_topic",
		"metrics.namespace", "metrics.path",
		"log.level", "log.format",
		"scenario.listing_top_n", "scenario.opportunities_top_n",
		"scenario.nearest_top_n", "scenario.default_active_features", "scenario.notice_ttl",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges ROI_* environment overrides,
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from ROI_* environment variables only.
//
//	ROI_<SECTION>_<FIELD>   e.g.  ROI_UPSTREAM_BASE_URL, ROI_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and passes the new
// Config to onChange.  Invalid intermediate states are skipped.  Watch does
// not block.
func Watch(configPath string, onChange func(*Config)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on error; for main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
