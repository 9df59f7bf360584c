package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/echochat/internal/shared/clock"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTimeout drops a client's limiter after this long without requests
	IdleTimeout time.Duration
}

// DefaultRateLimitConfig returns per-client limits sized for chat traffic.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		IdleTimeout:       10 * time.Minute,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks one token bucket per client IP.
type RateLimiter struct {
	cfg   RateLimitConfig
	clock clock.Clock

	mu      sync.Mutex
	clients map[string]*client
}

// NewRateLimiter creates a per-IP limiter
func NewRateLimiter(cfg RateLimitConfig, c clock.Clock) *RateLimiter {
	if c == nil {
		c = clock.Real()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultRateLimitConfig().IdleTimeout
	}
	return &RateLimiter{
		cfg:     cfg,
		clock:   c,
		clients: make(map[string]*client),
	}
}

// Allow reports whether ip may make a request now
func (r *RateLimiter) Allow(ip string) bool {
	now := r.clock.Now()

	r.mu.Lock()
	cl, ok := r.clients[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst)}
		r.clients[ip] = cl
	}
	cl.lastSeen = now
	r.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// Cleanup drops limiters idle for longer than IdleTimeout. Returns how
// many were dropped.
func (r *RateLimiter) Cleanup() int {
	cutoff := r.clock.Now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for ip, cl := range r.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
			dropped++
		}
	}
	return dropped
}

// Clients returns the number of tracked clients
func (r *RateLimiter) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Run calls Cleanup every IdleTimeout until ctx is done
func (r *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.IdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

// Middleware rejects requests over the client's limit with 429
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// RateLimit creates a per-IP rate limiting middleware without background
// cleanup. Prefer NewRateLimiter with Run for long-lived servers.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return NewRateLimiter(cfg, nil).Middleware()
}
