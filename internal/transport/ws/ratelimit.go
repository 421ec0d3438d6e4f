package ws

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// rateLimiter caps outbound chat messages per minute. A zero limit disables it.
type rateLimiter struct {
	limit int
	clock clock.Clock

	mu      sync.Mutex
	counter int
	resetAt time.Time
}

func newRateLimiter(limit int, clk clock.Clock) *rateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	return &rateLimiter{limit: limit, clock: clk}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if !now.Before(r.resetAt) {
		r.counter = 0
		r.resetAt = now.Add(time.Minute)
	}
	r.counter++
	return r.counter <= r.limit
}
