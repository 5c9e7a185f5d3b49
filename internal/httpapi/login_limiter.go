package httpapi

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter keeps one token bucket per key. Idle buckets are dropped
// once they have refilled.
type loginLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	entries map[string]*limiterEntry

	nextSweep time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLoginLimiter() *loginLimiter {
	// 10 attempts, refilling one every 30s.
	return &loginLimiter{
		limit:   rate.Every(30 * time.Second),
		burst:   10,
		idle:    10 * time.Minute,
		entries: make(map[string]*limiterEntry),
	}
}

func (l *loginLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !now.Before(l.nextSweep) {
		l.sweep(now)
		l.nextSweep = now.Add(l.idle)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// sweep drops buckets untouched for longer than the idle window. An idle
// bucket has refilled completely, so dropping it changes no decision.
func (l *loginLimiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.seen) > l.idle {
			delete(l.entries, k)
		}
	}
}
