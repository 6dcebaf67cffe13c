// Package ingest guards the population-generator collaborator's bulk
// ingest_players calls: a per-caller token-bucket request limiter, and a
// circuit-breaker-wrapped HTTP client for pulling a generated population.
package ingest

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter grants each caller identity (source name or client IP) its own
// token-bucket budget of maxRequests per window, guarding against runaway
// bulk ingest calls. Built on golang.org/x/time/rate — the library
// internal/api/middleware/ratelimit.go already uses for the control API's
// shared bucket — rather than a second hand-rolled limiter; the difference
// here is one bucket per caller instead of one bucket for the process.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	max      int
	window   time.Duration
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		max:      maxRequests,
		window:   window,
	}
}

// Allow reports whether caller is within its configured window's request
// budget, consuming one token if so.
func (l *Limiter) Allow(caller string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[caller]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(l.max)/l.window.Seconds()), l.max)
		l.limiters[caller] = limiter
	}
	l.mu.Unlock()

	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded: maximum %d ingest calls per %v", l.max, l.window)
	}
	return nil
}

// Stats reports limiter occupancy, for a diagnostics endpoint.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]interface{}{
		"tracked_callers": len(l.limiters),
		"max_requests":    l.max,
		"window":          l.window.String(),
	}
}

// Reset clears every tracked per-caller limiter.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*rate.Limiter)
}
