// Package config loads and validates service configuration from a YAML
// file with environment overrides.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the fee API.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Fees          FeesConfig          `mapstructure:"fees"`
	Warmup        WarmupConfig        `mapstructure:"warmup"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// Address returns the host:port the server binds to.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RateLimitConfig holds request rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// CacheConfig holds cache provider settings.
type CacheConfig struct {
	Provider   string        `mapstructure:"provider"` // memory or redis
	RedisURL   string        `mapstructure:"redis_url"`
	RedisToken string        `mapstructure:"redis_token"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// FeesConfig holds quote service settings.
type FeesConfig struct {
	QuoteTTL  time.Duration `mapstructure:"quote_ttl"`
	LimitsTTL time.Duration `mapstructure:"limits_ttl"`
}

// WarmupConfig holds cache warmup settings.
type WarmupConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Parallel  bool          `mapstructure:"parallel"`
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TracingConfig holds tracing settings.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load loads configuration from file and environment variables.
// Environment variables use the ACROSS_ prefix with underscores, e.g.
// ACROSS_SERVER_PORT overrides server.port.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ACROSS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal, defaults and env vars apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_minute", 300)
	v.SetDefault("server.rate_limit.burst", 50)

	// Cache defaults
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.redis_token", "")
	v.SetDefault("cache.default_ttl", "300s")
	v.SetDefault("cache.key_prefix", "across-api:")

	// Fees defaults
	v.SetDefault("fees.quote_ttl", "300s")
	v.SetDefault("fees.limits_ttl", "300s")

	// Warmup defaults
	v.SetDefault("warmup.enabled", true)
	v.SetDefault("warmup.interval", "300s")
	v.SetDefault("warmup.parallel", true)
	v.SetDefault("warmup.workers", 4)
	v.SetDefault("warmup.queue_size", 64)

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
}

// normalize canonicalizes values before validation.
func (c *Config) normalize() {
	c.Cache.Provider = strings.ToLower(strings.TrimSpace(c.Cache.Provider))
	c.Observability.Logging.Level = strings.ToLower(strings.TrimSpace(c.Observability.Logging.Level))
	c.Observability.Logging.Format = strings.ToLower(strings.TrimSpace(c.Observability.Logging.Format))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RequestsPerMinute < 1 {
			return fmt.Errorf("rate limit requests per minute must be >= 1")
		}
		if c.Server.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be >= 1")
		}
	}

	// Cache validation
	validProviders := map[string]bool{
		"memory": true,
		"redis":  true,
	}
	if !validProviders[c.Cache.Provider] {
		return fmt.Errorf("invalid cache provider: %s (valid: memory, redis)", c.Cache.Provider)
	}
	if c.Cache.Provider == "redis" {
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis cache provider requires cache.redis_url")
		}
		if c.Cache.RedisToken == "" {
			return fmt.Errorf("redis cache provider requires cache.redis_token")
		}
	}
	if c.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache default TTL must be >= 0")
	}

	// Fees validation
	if c.Fees.QuoteTTL < 0 {
		return fmt.Errorf("fees quote TTL must be >= 0")
	}
	if c.Fees.LimitsTTL < 0 {
		return fmt.Errorf("fees limits TTL must be >= 0")
	}

	// Warmup validation
	if c.Warmup.Enabled {
		if c.Warmup.Interval <= 0 {
			return fmt.Errorf("warmup interval must be > 0")
		}
		if c.Warmup.Workers < 1 {
			return fmt.Errorf("warmup workers must be >= 1")
		}
	}

	// Observability validation
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	if c.Observability.Tracing.Enabled && c.Observability.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing requires an endpoint when enabled")
	}

	return nil
}
