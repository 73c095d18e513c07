package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryProviderRoundtrip(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)
	defer p.Close()

	if err := p.Set(ctx, "quote:1", []byte(`{"fee":"42"}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := p.Get(ctx, "quote:1")
	if !ok {
		t.Fatal("Get: expected hit, got miss")
	}
	if string(got) != `{"fee":"42"}` {
		t.Errorf("got %q, want %q", got, `{"fee":"42"}`)
	}
}

func TestMemoryProviderAbsentKey(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	if got, ok := p.Get(ctx, "never-written"); ok {
		t.Errorf("expected miss, got %q", got)
	}
	if p.Exists(ctx, "never-written") {
		t.Error("Exists: expected false for absent key")
	}
}

func TestMemoryProviderTTLExpiry(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	if err := p.Set(ctx, "short", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, ok := p.Get(ctx, "short"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := p.Get(ctx, "short"); ok {
		t.Error("expected miss after expiry")
	}
	// The discovering access reclaims the entry.
	if p.Len() != 0 {
		t.Errorf("Len after expired read: got %d, want 0", p.Len())
	}
}

func TestMemoryProviderOneSecondTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 1s TTL test in short mode")
	}

	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	if err := p.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := p.Get(ctx, "k"); !ok {
		t.Fatal("expected hit immediately after write")
	}

	time.Sleep(1200 * time.Millisecond)

	if _, ok := p.Get(ctx, "k"); ok {
		t.Error("expected miss ~1.2s after a 1s TTL write")
	}
}

func TestMemoryProviderExistsHonorsExpiry(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	if err := p.Set(ctx, "k", []byte("v"), 30*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !p.Exists(ctx, "k") {
		t.Fatal("expected Exists true before expiry")
	}

	time.Sleep(60 * time.Millisecond)

	if p.Exists(ctx, "k") {
		t.Error("expected Exists false after expiry")
	}
}

func TestMemoryProviderDefaultTTL(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(40 * time.Millisecond)

	// ttl 0 falls back to the provider default.
	if err := p.Set(ctx, "defaulted", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// NoExpiry opts out of the default.
	if err := p.Set(ctx, "pinned", []byte("v"), NoExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}

	time.Sleep(70 * time.Millisecond)

	if _, ok := p.Get(ctx, "defaulted"); ok {
		t.Error("expected default-TTL entry to expire")
	}
	if _, ok := p.Get(ctx, "pinned"); !ok {
		t.Error("expected NoExpiry entry to survive")
	}
}

func TestMemoryProviderNoDefaultMeansNoExpiry(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(0)

	if err := p.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, ok := p.Get(ctx, "k"); !ok {
		t.Error("entry with no TTL and no default should never expire")
	}
}

func TestMemoryProviderLastWriteWins(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	if err := p.Set(ctx, "k", []byte("first"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Set(ctx, "k", []byte("second"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := p.Get(ctx, "k")
	if !ok || string(got) != "second" {
		t.Errorf("got %q, %v, want %q", got, ok, "second")
	}
}

func TestMemoryProviderDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	if err := p.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete existing: %v", err)
	}
	if err := p.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete absent: got %v, want nil", err)
	}
	if _, ok := p.Get(ctx, "k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryProviderFlush(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := p.Set(ctx, key, []byte("v"), 0); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if p.Len() != 0 {
		t.Errorf("Len after flush: got %d, want 0", p.Len())
	}
	for i := 0; i < 5; i++ {
		if _, ok := p.Get(ctx, fmt.Sprintf("k%d", i)); ok {
			t.Errorf("expected miss for k%d after flush", i)
		}
	}
}

func TestMemoryProviderGetMany(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	if err := p.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Set(ctx, "c", []byte("3"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Order mirrors the input, missing keys are nil, duplicates resolve
	// independently.
	got := p.GetMany(ctx, []string{"a", "b", "c", "a"})
	if len(got) != 4 {
		t.Fatalf("len: got %d, want 4", len(got))
	}
	if string(got[0]) != "1" {
		t.Errorf("got[0] = %q, want %q", got[0], "1")
	}
	if got[1] != nil {
		t.Errorf("got[1] = %q, want nil", got[1])
	}
	if string(got[2]) != "3" {
		t.Errorf("got[2] = %q, want %q", got[2], "3")
	}
	if string(got[3]) != "1" {
		t.Errorf("got[3] = %q, want %q", got[3], "1")
	}
}

func TestMemoryProviderSetMany(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	entries := []Entry{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2"), TTL: 30 * time.Millisecond},
	}
	if err := p.SetMany(ctx, entries); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	for _, want := range []struct{ key, value string }{{"a", "1"}, {"b", "2"}} {
		got, ok := p.Get(ctx, want.key)
		if !ok || string(got) != want.value {
			t.Errorf("Get %s: got %q, %v, want %q", want.key, got, ok, want.value)
		}
	}

	// Per-entry TTLs apply independently.
	time.Sleep(60 * time.Millisecond)
	if _, ok := p.Get(ctx, "b"); ok {
		t.Error("expected b to expire via its per-entry TTL")
	}
	if _, ok := p.Get(ctx, "a"); !ok {
		t.Error("expected a to survive")
	}
}

func TestMemoryProviderCopiesValues(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	original := []byte("immutable")
	if err := p.Set(ctx, "k", original, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Mutating the caller's slice must not change the stored value.
	original[0] = 'X'

	got, ok := p.Get(ctx, "k")
	if !ok || string(got) != "immutable" {
		t.Fatalf("got %q, want %q", got, "immutable")
	}

	// Mutating the returned slice must not change the stored value either.
	got[0] = 'Y'
	again, _ := p.Get(ctx, "k")
	if string(again) != "immutable" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryProviderConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%4)
			for j := 0; j < 100; j++ {
				if err := p.Set(ctx, key, []byte("v"), 0); err != nil {
					t.Errorf("Set: %v", err)
					return
				}
				p.Get(ctx, key)
				p.Exists(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if p.Len() != 4 {
		t.Errorf("Len: got %d, want 4", p.Len())
	}
}
