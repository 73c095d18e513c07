// Package cache provides pluggable caching for quote data with in-memory and
// Redis backends behind a single provider interface.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// NoExpiry marks an entry that never expires, regardless of the provider's
// configured default TTL.
const NoExpiry time.Duration = -1

// Entry is a single key/value pair for batch writes.
type Entry struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// Provider defines the interface for cache operations. Values are opaque
// bytes; callers own serialization (see GetJSON / SetJSON).
//
// Reads and writes fail differently on purpose. Read operations (Get, Exists,
// GetMany) absorb backend failures and report a miss, so a degraded cache
// never breaks a caller that can recompute. Write operations (Set, Delete,
// Flush, SetMany) return the backend error unwrapped so the caller decides
// what a failed write means.
type Provider interface {
	// Get retrieves the value stored under key. A missing key, an expired
	// entry, and a backend failure all return (nil, false).
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key. A ttl of 0 applies the provider default;
	// NoExpiry stores the entry without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds a live entry.
	Exists(ctx context.Context, key string) bool

	// Flush removes every entry owned by this provider.
	Flush(ctx context.Context) error

	// GetMany retrieves several keys at once. The result has the same length
	// and order as keys, with nil marking absent values. Duplicate keys are
	// resolved independently.
	GetMany(ctx context.Context, keys []string) [][]byte

	// SetMany stores several entries, attempting every entry even when some
	// fail, and returns the joined failures.
	SetMany(ctx context.Context, entries []Entry) error

	// Close releases backend resources.
	Close() error
}

// resolveTTL maps the interface TTL encoding to the duration actually applied:
// positive passes through, zero falls back to the default, and NoExpiry (or a
// non-positive default) means no expiration at all.
func resolveTTL(ttl, def time.Duration) time.Duration {
	switch {
	case ttl > 0:
		return ttl
	case ttl < 0:
		return 0
	case def > 0:
		return def
	default:
		return 0
	}
}

// cloneBytes returns a copy so cached bytes never alias caller memory.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// GetJSON retrieves and unmarshals a JSON value. Undecodable bytes count as a
// read-path failure and degrade to a miss.
func GetJSON[T any](ctx context.Context, p Provider, key string) (T, bool) {
	var value T

	raw, ok := p.Get(ctx, key)
	if !ok {
		return value, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		var zero T
		return zero, false
	}
	return value, true
}

// SetJSON marshals value as JSON and stores it under key.
func SetJSON[T any](ctx context.Context, p Provider, key string, value T, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	return p.Set(ctx, key, raw, ttl)
}
