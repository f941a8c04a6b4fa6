package middleware

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// RateLimiter is a fixed-window, in-memory limiter keyed by player id.
type RateLimiter struct {
	limits map[string]*playerLimit
	mu     sync.RWMutex

	maxRequests int
	window      time.Duration
	now         func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type playerLimit struct {
	requests  int
	resetTime time.Time
}

// NewRateLimiter creates a new rate limiter and starts its cleanup goroutine.
// A non-positive maxRequests disables limiting.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limits:      make(map[string]*playerLimit),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	go rl.cleanup(cleanupInterval)

	return rl
}

// WithClock replaces the time source. Tests only.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
	return rl
}

// Allow counts one request for the player and reports whether it fits the window.
func (rl *RateLimiter) Allow(playerID string) bool {
	if rl.maxRequests <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	limit, exists := rl.limits[playerID]
	if !exists || now.After(limit.resetTime) {
		rl.limits[playerID] = &playerLimit{
			requests:  1,
			resetTime: now.Add(rl.window),
		}
		return true
	}

	if limit.requests >= rl.maxRequests {
		return false
	}

	limit.requests++
	return true
}

// Remaining returns how many requests the player has left in the current window.
func (rl *RateLimiter) Remaining(playerID string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	limit, exists := rl.limits[playerID]
	if !exists || rl.now().After(limit.resetTime) {
		return rl.maxRequests
	}

	remaining := rl.maxRequests - limit.requests
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (rl *RateLimiter) cleanup(interval time.Duration) {
	defer close(rl.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.purgeExpired()
		}
	}
}

func (rl *RateLimiter) purgeExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	purged := 0
	for playerID, limit := range rl.limits {
		if now.After(limit.resetTime) {
			delete(rl.limits, playerID)
			purged++
		}
	}
	return purged
}

// Stop ends the cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

// Reset clears all rate limits (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.limits = make(map[string]*playerLimit)
}
