package revocation

import (
	"context"
	"sync"
	"time"
)

// List is the injected revocation set: tokens inserted here must no longer
// authenticate even while a credential row still carries them. Logout inserts
// first and persists second, so the list is the defensive check that wins the
// logout/store-update race.
type List interface {
	// Revoke adds a token with a TTL bounding how long the entry is kept.
	// The TTL matches the token cookie max-age: past that point the cookie
	// itself can no longer be replayed.
	Revoke(ctx context.Context, token string, ttl time.Duration) error

	// IsRevoked checks membership.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// InMemoryList is a process-scoped revocation list. Revocations are lost on
// restart and invisible to other processes; deployments running more than one
// instance should use RedisList.
type InMemoryList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // token -> entry expiry
}

// NewInMemory creates an empty in-memory revocation list.
func NewInMemory() *InMemoryList {
	return &InMemoryList{revoked: make(map[string]time.Time)}
}

func (l *InMemoryList) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[token] = time.Now().Add(ttl)
	return nil
}

func (l *InMemoryList) IsRevoked(_ context.Context, token string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	expiry, exists := l.revoked[token]
	if !exists {
		return false, nil
	}
	// The entry outlived the token's own max-age; the cookie cannot be
	// replayed anymore.
	if time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}

// Prune removes expired entries so the set does not grow without bound over
// the process lifetime. Returns the number of entries removed.
func (l *InMemoryList) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for token, expiry := range l.revoked {
		if now.After(expiry) {
			delete(l.revoked, token)
			removed++
		}
	}
	return removed
}

// Sweep runs Prune on a ticker until the context is cancelled. Run it from
// the composition root alongside the HTTP server.
func (l *InMemoryList) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Prune(now)
		}
	}
}
