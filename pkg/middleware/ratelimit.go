package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter manages token-bucket limiters per client IP. This is the
// coarse edge limiter that shields the service itself; per-actor policy
// enforcement is owned by the protection evaluator, not by this middleware.
type IPRateLimiter struct {
	ips     map[string]*ipEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
	idleTTL time.Duration
}

type ipEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a new rate limiter.
// r is the rate of events (requests per second), b is the burst size.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		ips:     make(map[string]*ipEntry),
		r:       r,
		b:       b,
		idleTTL: 15 * time.Minute,
	}

	go func() {
		for {
			time.Sleep(1 * time.Minute)
			i.cleanup()
		}
	}()

	return i
}

// GetLimiter returns the rate limiter for the given IP.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	ent, exists := i.ips[ip]
	if !exists {
		ent = &ipEntry{lim: rate.NewLimiter(i.r, i.b)}
		i.ips[ip] = ent
	}
	ent.lastSeen = time.Now()

	return ent.lim
}

func (i *IPRateLimiter) cleanup() {
	cutoff := time.Now().Add(-i.idleTTL)

	i.mu.Lock()
	defer i.mu.Unlock()

	for ip, ent := range i.ips {
		if ent.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
		}
	}
}

// RateLimitMiddleware creates a Gin middleware for coarse per-IP rate limiting.
func RateLimitMiddleware(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(limit, burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "too many requests. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
