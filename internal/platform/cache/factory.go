package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dohaki/across-api/internal/platform/observability"
)

// ProviderKind selects which cache backend to construct.
type ProviderKind string

const (
	// ProviderMemory is the in-process map-backed cache.
	ProviderMemory ProviderKind = "memory"
	// ProviderRedis is the Redis-backed cache.
	ProviderRedis ProviderKind = "redis"
)

// DefaultTTL is the fallback entry lifetime applied when configuration does
// not set one.
const DefaultTTL = 5 * time.Minute

const defaultKeyPrefix = "across-api:"

// Environment variables read by NewFromEnv.
const (
	envProvider   = "CACHE_PROVIDER"
	envRedisURL   = "CACHE_REDIS_URL"
	envRedisToken = "CACHE_REDIS_TOKEN"
	envDefaultTTL = "CACHE_DEFAULT_TTL_SECONDS"
	envKeyPrefix  = "CACHE_KEY_PREFIX"
)

// RemoteConfig carries the connection credentials for the Redis provider.
type RemoteConfig struct {
	URL   string
	Token string
}

// Config selects and parameterizes a cache provider.
type Config struct {
	Provider   ProviderKind
	Remote     RemoteConfig
	DefaultTTL time.Duration
	KeyPrefix  string
}

// New constructs the provider selected by cfg. Misconfiguration (an unknown
// provider kind, or redis without complete credentials) fails here rather
// than on first use.
func New(cfg Config, logger *observability.Logger) (Provider, error) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}

	switch cfg.Provider {
	case ProviderMemory, "":
		return NewMemoryProvider(cfg.DefaultTTL), nil
	case ProviderRedis:
		return NewRedisProvider(cfg.Remote, cfg.DefaultTTL, cfg.KeyPrefix, logger)
	default:
		return nil, fmt.Errorf("cache: unknown provider %q (valid: %q, %q)", cfg.Provider, ProviderMemory, ProviderRedis)
	}
}

// NewFromEnv constructs a provider from environment variables alone. It is
// the single place the cache layer reads the environment, for targets like
// Lambda where all configuration is environment-borne. Unset variables fall
// back to an in-memory provider with the five-minute default TTL.
func NewFromEnv(logger *observability.Logger) (Provider, error) {
	cfg := Config{
		Provider:   ProviderMemory,
		DefaultTTL: DefaultTTL,
		KeyPrefix:  os.Getenv(envKeyPrefix),
		Remote: RemoteConfig{
			URL:   os.Getenv(envRedisURL),
			Token: os.Getenv(envRedisToken),
		},
	}

	if v := os.Getenv(envProvider); v != "" {
		cfg.Provider = ProviderKind(v)
	}
	if v := os.Getenv(envDefaultTTL); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cache: invalid %s %q: %w", envDefaultTTL, v, err)
		}
		cfg.DefaultTTL = time.Duration(secs) * time.Second
	}

	return New(cfg, logger)
}
