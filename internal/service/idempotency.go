package service

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore remembers which order reference a checkout key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, reference string) error
}

// idempotencySweepInterval bounds how often Remember scans for expired keys.
const idempotencySweepInterval = time.Minute

type idempotencyEntry struct {
	reference string
	expiresAt time.Time
}

// MemoryIdempotencyStore is the in-process IdempotencyStore.
type MemoryIdempotencyStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]idempotencyEntry
	lastSweep time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]idempotencyEntry),
	}
}

func (m *MemoryIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.reference, true, nil
}

// Remember keeps the first reference stored for a live key. It also drops
// expired keys, at most once per sweep interval.
func (m *MemoryIdempotencyStore) Remember(_ context.Context, key, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) > idempotencySweepInterval {
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
		m.lastSweep = now
	}
	if e, ok := m.entries[key]; ok && !now.After(e.expiresAt) {
		return nil
	}
	m.entries[key] = idempotencyEntry{reference: reference, expiresAt: now.Add(m.ttl)}
	return nil
}
