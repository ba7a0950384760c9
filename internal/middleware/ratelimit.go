package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"medfetch/internal/errors"
)

// RateLimiter implements per-client token bucket rate limiting
type RateLimiter struct {
	clients map[string]*clientBucket
	mu      sync.Mutex
	rate    int           // requests per window
	window  time.Duration // refill window
}

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter, e.g. 60 requests per minute
func NewRateLimiter(requestsPerWindow int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		rate:    requestsPerWindow,
		window:  window,
	}

	// Drop buckets for clients that went quiet
	go rl.cleanup()

	return rl
}

// Middleware returns the Fiber handler enforcing the limit per client IP
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.allow(c.IP()) {
			c.Set("Retry-After", rl.window.String())
			return errors.ErrRateLimited
		}

		return c.Next()
	}
}

// allow checks whether the client has a token left in this window
func (rl *RateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	bucket, exists := rl.clients[clientID]
	if !exists {
		bucket = &clientBucket{
			tokens:     rl.rate,
			lastRefill: now,
		}
		rl.clients[clientID] = bucket
	}

	if now.Sub(bucket.lastRefill) >= rl.window {
		bucket.tokens = rl.rate
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for clientID, bucket := range rl.clients {
			if now.Sub(bucket.lastRefill) > 10*time.Minute {
				delete(rl.clients, clientID)
			}
		}
		rl.mu.Unlock()
	}
}
