package cache

import (
	"context"
	"testing"
	"time"
)

func newTestMemory() (*Memory, *time.Time) {
	m := NewMemory(time.Hour)
	now := time.Now()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemory_GetWithinTTL(t *testing.T) {
	m, _ := newTestMemory()
	defer m.Stop()

	ctx := context.Background()
	m.Set(ctx, "reservation:abc", []byte(`{"id":"abc"}`), time.Minute)

	value, ok := m.Get(ctx, "reservation:abc")
	if !ok {
		t.Fatal("expected cache hit within TTL")
	}
	if string(value) != `{"id":"abc"}` {
		t.Errorf("unexpected value: %s", value)
	}
}

func TestMemory_ExpiredEntryEvictedOnRead(t *testing.T) {
	m, now := newTestMemory()
	defer m.Stop()

	ctx := context.Background()
	m.Set(ctx, "rate:KRK", []byte(`330`), time.Minute)

	*now = now.Add(time.Minute + time.Millisecond)

	if _, ok := m.Get(ctx, "rate:KRK"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}

	m.mu.RLock()
	_, stillThere := m.entries["rate:KRK"]
	m.mu.RUnlock()
	if stillThere {
		t.Error("expired entry should be removed on read")
	}
}

func TestMemory_EntryServedAtExactTTL(t *testing.T) {
	m, now := newTestMemory()
	defer m.Stop()

	ctx := context.Background()
	m.Set(ctx, "k", []byte("v"), time.Minute)

	// now - storedAt == ttl is still fresh; expiry is strictly after TTL.
	*now = now.Add(time.Minute)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Error("entry at exactly its TTL should still be served")
	}
}

func TestMemory_EvictionSparesEntryRefreshedAfterReadSnapshot(t *testing.T) {
	m, now := newTestMemory()
	defer m.Stop()

	ctx := context.Background()
	m.Set(ctx, "k", []byte("stale"), time.Minute)
	*now = now.Add(2 * time.Minute)

	// A reader saw the stale snapshot and decided to evict, but a fresh
	// Set lands before it takes the write lock. The fresh entry survives.
	m.Set(ctx, "k", []byte("fresh"), time.Minute)
	m.evictIfExpired("k")

	value, ok := m.Get(ctx, "k")
	if !ok || string(value) != "fresh" {
		t.Errorf("expected refreshed entry to survive eviction, got %q (hit=%v)", value, ok)
	}
}

func TestMemory_SetOverwrites(t *testing.T) {
	m, _ := newTestMemory()
	defer m.Stop()

	ctx := context.Background()
	m.Set(ctx, "k", []byte("old"), time.Minute)
	m.Set(ctx, "k", []byte("new"), time.Minute)

	value, ok := m.Get(ctx, "k")
	if !ok || string(value) != "new" {
		t.Errorf("expected overwritten value 'new', got %q (hit=%v)", value, ok)
	}
}

func TestMemory_Delete(t *testing.T) {
	m, _ := newTestMemory()
	defer m.Stop()

	ctx := context.Background()
	m.Set(ctx, "k", []byte("v"), time.Minute)
	m.Delete(ctx, "k")

	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("deleted entry must not be served")
	}
}
