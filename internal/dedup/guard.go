// Package dedup rejects a submission that repeats one already accepted
// within a short window.
package dedup

import (
	"context"
	"sync"
	"time"
)

type Guard interface {
	// Acquire reports whether key was free and is now held for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type NoopGuard struct{}

func (NoopGuard) Acquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

func (NoopGuard) Release(_ context.Context, _ string) error {
	return nil
}

// MemoryGuard holds keys in process. Suitable for a single server instance.
type MemoryGuard struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

func NewMemoryGuard(now func() time.Time) *MemoryGuard {
	if now == nil {
		now = time.Now
	}
	return &MemoryGuard{now: now, expires: make(map[string]time.Time)}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.expires {
		if !now.Before(exp) {
			delete(g.expires, k)
		}
	}
	if _, held := g.expires[key]; held {
		return false, nil
	}
	g.expires[key] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.expires, key)
	return nil
}
