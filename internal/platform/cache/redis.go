package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dohaki/across-api/internal/platform/observability"
)

// RedisProvider implements a Redis-backed cache. Keys are scoped under a
// prefix so Flush never touches foreign data in a shared database, and
// expiry is enforced server-side by Redis.
type RedisProvider struct {
	client     *redis.Client
	defaultTTL time.Duration
	keyPrefix  string
	logger     *observability.Logger
}

// NewRedisProvider connects to Redis using the remote credentials. Both URL
// and token are required; construction fails fast on missing credentials, an
// unparsable URL, or an unreachable server.
func NewRedisProvider(remote RemoteConfig, defaultTTL time.Duration, keyPrefix string, logger *observability.Logger) (*RedisProvider, error) {
	if remote.URL == "" || remote.Token == "" {
		return nil, fmt.Errorf("cache: redis provider requires both URL and token")
	}

	opts, err := redis.ParseURL(remote.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	opts.Password = remote.Token
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 5

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: failed to connect to redis: %w", err)
	}

	return &RedisProvider{
		client:     client,
		defaultTTL: defaultTTL,
		keyPrefix:  keyPrefix,
		logger:     logger,
	}, nil
}

// Get retrieves the value stored under key. Backend failures are logged and
// reported as a miss; redis.Nil is an ordinary miss and stays silent.
func (r *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefixed(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.LogWarn(ctx, "redis get failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

// Set stores value under key with the resolved TTL (0 means no expiration).
func (r *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefixed(key), value, resolveTTL(ttl, r.defaultTTL)).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. DEL on an absent key succeeds, keeping deletes
// idempotent.
func (r *RedisProvider) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefixed(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}
	return nil
}

// Exists reports whether key holds a live entry; backend failures degrade to
// false.
func (r *RedisProvider) Exists(ctx context.Context, key string) bool {
	n, err := r.client.Exists(ctx, r.prefixed(key)).Result()
	if err != nil {
		r.logger.LogWarn(ctx, "redis exists failed, treating as absent", "key", key, "error", err)
		return false
	}
	return n > 0
}

// Flush removes every key under the provider's prefix, page by page. Keys
// outside the prefix survive, so a shared database loses nothing foreign.
func (r *RedisProvider) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.keyPrefix+"*", 256).Result()
		if err != nil {
			return fmt.Errorf("redis flush scan: %w", err)
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis flush delete: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetMany retrieves several keys with one MGET. A failed batch degrades to
// all-absent; individual missing keys come back as nil slots.
func (r *RedisProvider) GetMany(ctx context.Context, keys []string) [][]byte {
	results := make([][]byte, len(keys))
	if len(keys) == 0 {
		return results
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefixed(key)
	}

	vals, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		r.logger.LogWarn(ctx, "redis mget failed, treating all keys as misses", "keys", len(keys), "error", err)
		return results
	}

	for i, val := range vals {
		if s, ok := val.(string); ok {
			results[i] = []byte(s)
		}
	}
	return results
}

// SetMany stores every entry through one pipeline. MSET cannot carry
// per-entry TTLs, so the batch decomposes into pipelined SETs; every entry is
// attempted and the failures come back joined.
func (r *RedisProvider) SetMany(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, e := range entries {
		pipe.Set(ctx, r.prefixed(e.Key), e.Value, resolveTTL(e.TTL, r.defaultTTL))
	}

	cmds, execErr := pipe.Exec(ctx)

	var errs []error
	for i, cmd := range cmds {
		if err := cmd.Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis set %q: %w", entries[i].Key, err))
		}
	}
	if len(errs) == 0 && execErr != nil {
		errs = append(errs, fmt.Errorf("redis pipeline: %w", execErr))
	}
	return errors.Join(errs...)
}

// Close closes the Redis connection.
func (r *RedisProvider) Close() error {
	return r.client.Close()
}

func (r *RedisProvider) prefixed(key string) string {
	return r.keyPrefix + key
}
