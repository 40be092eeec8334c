package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/envoice/envoicego/internal/retry"
)

// SessionManager caches Magaya access keys per network so each pipeline run
// does not pay a fresh login. Keys expire after the configured TTL; expired
// entries are reacquired on demand.
type SessionManager struct {
	ttl    time.Duration
	locker Locker

	// LoginPolicy bounds the login retries of a cold endpoint
	LoginPolicy retry.Policy

	mu       sync.Mutex
	sessions map[string]session
}

type session struct {
	accessKey string
	expires   time.Time
}

// NewSessionManager creates a session cache with the given key lifetime
func NewSessionManager(ttl time.Duration, locker Locker) *SessionManager {
	return &SessionManager{
		ttl:         ttl,
		locker:      locker,
		LoginPolicy: retry.Policy{MaxAttempts: 3, InitialDelay: 2 * time.Second, BackoffFactor: 2},
		sessions:    make(map[string]session),
	}
}

// AccessKey returns a live access key for the network, logging in when the
// cached key is missing or expired. Login is retried with backoff since a
// cold Magaya endpoint often rejects the first attempt.
func (m *SessionManager) AccessKey(ctx context.Context, mag MagayaAPI, networkID, user, pass string) (string, error) {
	m.mu.Lock()
	if s, ok := m.sessions[networkID]; ok && time.Now().Before(s.expires) {
		m.mu.Unlock()
		return s.accessKey, nil
	}
	m.mu.Unlock()

	guardKey := "session_" + networkID
	if !m.locker.Acquire(guardKey, m.ttl) {
		return "", fmt.Errorf("session: login already in progress for network %s", networkID)
	}
	defer m.locker.Release(guardKey)

	// Another caller may have logged in while we waited for the guard
	m.mu.Lock()
	if s, ok := m.sessions[networkID]; ok && time.Now().Before(s.expires) {
		m.mu.Unlock()
		return s.accessKey, nil
	}
	m.mu.Unlock()

	var accessKey string
	err := retry.Do(ctx, m.LoginPolicy, func(attempt int) (bool, error) {
		key, err := mag.StartSession(ctx, user, pass)
		if err != nil {
			log.Printf("⚠️ Magaya login attempt %d failed for network %s: %v", attempt, networkID, err)
			return false, nil
		}
		accessKey = key
		return true, nil
	})
	if err != nil {
		return "", fmt.Errorf("session: login failed for network %s: %w", networkID, err)
	}

	m.mu.Lock()
	m.sessions[networkID] = session{accessKey: accessKey, expires: time.Now().Add(m.ttl)}
	m.mu.Unlock()

	log.Printf("✅ Magaya session established for network %s", networkID)
	return accessKey, nil
}

// Invalidate drops the cached key of a network, forcing the next call to
// log in again
func (m *SessionManager) Invalidate(networkID string) {
	m.mu.Lock()
	delete(m.sessions, networkID)
	m.mu.Unlock()
}
