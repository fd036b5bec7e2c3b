package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a sliding window per client key: at most max hits within
// window. Keys are client IPs; each rate-limited route gets its own Limiter
// with its own budget.
type Limiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
}

func New(max int, window time.Duration) *Limiter {
	l := &Limiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
	}

	go l.cleanup()

	return l
}

// Allow records a hit for key and reports whether it stays within budget.
// Refused hits are not recorded, so a blocked client regains access as soon
// as the window slides past its earlier requests.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}

	l.hits[key] = append(kept, now)
	return true
}

// Reset forgets all hits for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.hits, key)
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		cutoff := l.now().Add(-l.window)

		for key, stamps := range l.hits {
			if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
				delete(l.hits, key)
			}
		}

		l.mu.Unlock()
	}
}
