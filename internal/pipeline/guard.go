package pipeline

import (
	"sync"
	"time"
)

// Locker is the concurrency-control primitive of the pipeline: while a key
// is held, no other invocation for the same key may proceed past the guard.
// The in-memory implementation covers single-process deployments; a
// multi-process deployment needs a shared store with conditional insert
// behind this same interface.
type Locker interface {
	Acquire(key string, ttl time.Duration) bool
	Release(key string)
}

// MemoryLocker is a process-local Locker backed by a map with expiry.
// The TTL is a safety net against crashed holders; normal operation always
// releases explicitly.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryLocker creates an empty in-memory locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]time.Time)}
}

// Acquire takes the key if it is free or expired. Returns false when the
// key is already held.
func (l *MemoryLocker) Acquire(key string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, held := l.entries[key]; held && now.Before(expiry) {
		return false
	}

	l.entries[key] = now.Add(ttl)

	// Opportunistic purge so the map does not grow unbounded
	if len(l.entries) > 10000 {
		for k, v := range l.entries {
			if now.After(v) {
				delete(l.entries, k)
			}
		}
	}

	return true
}

// Release frees the key
func (l *MemoryLocker) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}
