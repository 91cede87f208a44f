// Package ratelimit provides the per-identity request throttle that
// guards the model-call path. Identities are opaque strings; callers
// derive them from the request's logical resource plus the caller's
// user ID so limits apply per user per endpoint.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces at most `limit` requests per identity inside a
// rolling window. It keeps a timestamp log per identity, pruned on
// every check, so the window genuinely slides instead of resetting on
// a fixed boundary.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string][]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Limiter allowing limit requests per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check records one request attempt for identity and reports whether it
// is allowed. The count-and-append happens under one lock, so two
// concurrent requests from the same identity cannot both sneak under
// the ceiling.
func (l *Limiter) Check(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.entries[identity][:0]
	for _, ts := range l.entries[identity] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.entries[identity] = kept
		return false
	}

	l.entries[identity] = append(kept, now)
	return true
}

// Sweep drops identities whose whole window has elapsed. Called
// periodically so idle identities do not accumulate forever.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for id, stamps := range l.entries {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.entries, id)
		}
	}
}

// Run sweeps on the given interval until stop is closed.
func (l *Limiter) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-stop:
			return
		}
	}
}
