// Package config loads the process-wide Config once at startup. Per the
// immutability invariant ("configuration is read-once at startup and
// treated as immutable thereafter"), there is deliberately no watch/reload
// path: callers get a single snapshot and hold it for the process lifetime.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of knobs the proxy needs at startup.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type UpstreamConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	MaxStoredBodyBytes int    `mapstructure:"max_stored_body_bytes"`
}

type StorageConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// RedisConfig configures the optional analytics read-path cache in front of
// pkg/aggregator. It is never consulted on the proxy request path.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

const (
	defaultTimeoutSeconds     = 300
	defaultMaxStoredBodyBytes = 1_048_576
	defaultPort               = "8080"
)

// Load reads configuration from ./configs/config.yaml (if present) layered
// under RELAY_-prefixed environment variable overrides, applies defaults,
// and validates the one required field. It is called exactly once, from
// cmd/relayd, and the returned Config is never mutated afterward.
func Load() (*Config, error) {
	v := viper.New()
	v.AddConfigPath("./configs")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only surfaces keys viper already knows of during
	// Unmarshal; keys with no default are bound explicitly.
	for _, key := range []string{"upstream.base_url", "storage.connection_string", "redis.enabled", "redis.address", "redis.password", "redis.db"} {
		_ = v.BindEnv(key)
	}

	v.SetDefault("upstream.timeout_seconds", defaultTimeoutSeconds)
	v.SetDefault("upstream.max_stored_body_bytes", defaultMaxStoredBodyBytes)
	v.SetDefault("server.port", defaultPort)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.Upstream.BaseURL = strings.TrimRight(cfg.Upstream.BaseURL, "/")
	if cfg.Upstream.BaseURL == "" {
		return nil, fmt.Errorf("config: upstream.base_url is required (ERR_CONFIG)")
	}

	return &cfg, nil
}
