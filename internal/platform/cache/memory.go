package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memoryEntry is a stored value with its expiration deadline.
// A zero expiresAt means the entry never expires.
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryProvider implements an in-process cache on a mutex-protected map.
// Expiry is lazy: dead entries are detected and removed by the access that
// finds them, with no background sweeper, so memory for an expired entry is
// reclaimed on its next read.
type MemoryProvider struct {
	defaultTTL time.Duration

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryProvider creates an in-memory provider. Entries written with a
// zero TTL live for defaultTTL; a non-positive defaultTTL means they never
// expire.
func NewMemoryProvider(defaultTTL time.Duration) *MemoryProvider {
	return &MemoryProvider{
		defaultTTL: defaultTTL,
		entries:    make(map[string]memoryEntry),
	}
}

// Get retrieves the value stored under key. Expired entries are deleted on
// discovery and reported as absent.
func (m *MemoryProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		m.deleteExpired(key, entry.expiresAt)
		return nil, false
	}

	return cloneBytes(entry.value), true
}

// Set stores a copy of value under key, replacing any previous entry.
func (m *MemoryProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if d := resolveTTL(ttl, m.defaultTTL); d > 0 {
		expiresAt = time.Now().Add(d)
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{
		value:     cloneBytes(value),
		expiresAt: expiresAt,
	}
	m.mu.Unlock()

	return nil
}

// Delete removes key. Absent keys are a no-op.
func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Exists reports whether key holds a live entry, honoring expiry.
func (m *MemoryProvider) Exists(ctx context.Context, key string) bool {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return false
	}
	if entry.expired(time.Now()) {
		m.deleteExpired(key, entry.expiresAt)
		return false
	}

	return true
}

// Flush drops every entry.
func (m *MemoryProvider) Flush(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// GetMany resolves each key independently; the result keeps input order with
// nil marking absent values.
func (m *MemoryProvider) GetMany(ctx context.Context, keys []string) [][]byte {
	results := make([][]byte, len(keys))
	for i, key := range keys {
		if value, ok := m.Get(ctx, key); ok {
			results[i] = value
		}
	}
	return results
}

// SetMany stores every entry. The in-memory store cannot fail a write, but
// the attempt-all error aggregation matches the provider contract.
func (m *MemoryProvider) SetMany(ctx context.Context, entries []Entry) error {
	var errs []error
	for _, e := range entries {
		if err := m.Set(ctx, e.Key, e.Value, e.TTL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close is a no-op for the in-memory provider.
func (m *MemoryProvider) Close() error {
	return nil
}

// Len returns the number of stored entries, counting expired ones that no
// access has reclaimed yet.
func (m *MemoryProvider) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// deleteExpired removes key only while it still holds the same expired entry,
// so a concurrent Set is never lost.
func (m *MemoryProvider) deleteExpired(key string, expiresAt time.Time) {
	m.mu.Lock()
	if cur, ok := m.entries[key]; ok && cur.expiresAt.Equal(expiresAt) && cur.expired(time.Now()) {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}
