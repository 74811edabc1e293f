package auth

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold is the entry count above which an insert first drops
// expired entries.
const sweepThreshold = 1024

type cacheEntry struct {
	id        Identity
	expiresAt time.Time
}

// CachingVerifier remembers successful verifications for a fixed TTL, or
// until the token itself expires if that comes first. Failures are never
// cached.
type CachingVerifier struct {
	next Verifier
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

var _ Verifier = (*CachingVerifier)(nil)

// NewCachingVerifier wraps next with a TTL cache.
func NewCachingVerifier(next Verifier, ttl time.Duration) *CachingVerifier {
	return &CachingVerifier{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachingVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[token]
	if ok && now.Before(e.expiresAt) {
		c.mu.Unlock()
		return e.id, nil
	}
	if ok {
		delete(c.entries, token)
	}
	c.mu.Unlock()

	id, err := c.next.Verify(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	expiresAt := now.Add(c.ttl)
	if !id.Expires.IsZero() && id.Expires.Before(expiresAt) {
		expiresAt = id.Expires
	}

	c.mu.Lock()
	if len(c.entries) >= sweepThreshold {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[token] = cacheEntry{id: id, expiresAt: expiresAt}
	c.mu.Unlock()

	return id, nil
}

// Len returns the number of cached entries, expired or not.
func (c *CachingVerifier) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
