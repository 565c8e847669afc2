package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits login attempts per client address.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows perMinute attempts per address with the given burst.
func NewThrottle(perMinute, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limiters: make(map[string]*visitor),
		limit:    rate.Limit(perMinute) / 60,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether addr may attempt another login now.
func (t *Throttle) Allow(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.limiters[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[addr] = v
	}
	v.lastSeen = t.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Forget drops addresses not seen since before cutoff.
func (t *Throttle) Forget(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for addr, v := range t.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(t.limiters, addr)
			n++
		}
	}
	return n
}

// Run forgets idle addresses every interval until ctx is cancelled.
func (t *Throttle) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Forget(t.now().Add(-idle))
		}
	}
}
