package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

// Memory is an unbounded in-process TTL cache. A background sweep removes
// expired entries so abandoned keys do not accumulate between reads.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stopCh  chan struct{}
	now     func() time.Time
}

func NewMemory(sweepInterval time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go m.sweep(sweepInterval)

	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if m.now().Sub(e.storedAt) > e.ttl {
		m.evictIfExpired(key)
		return nil, false
	}

	return e.value, true
}

// evictIfExpired re-checks the entry under the write lock before deleting,
// so a Set that landed after the read snapshot is not dropped.
func (m *Memory) evictIfExpired(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.entries[key]
	if exists && m.now().Sub(e.storedAt) > e.ttl {
		delete(m.entries, key)
	}
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &entry{
		value:    value,
		storedAt: m.now(),
		ttl:      ttl,
	}
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
}

func (m *Memory) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if m.now().Sub(e.storedAt) > e.ttl {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) Stop() {
	close(m.stopCh)
}
