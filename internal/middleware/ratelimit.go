package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/temcen/sage/internal/config"
)

const (
	limiterIdleTTL       = time.Hour
	limiterSweepInterval = 10 * time.Minute
)

// ClientRateLimiter keeps one token bucket per client IP. Idle buckets are
// swept lazily on access.
type ClientRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewClientRateLimiter(cfg config.RateLimitConfig) *ClientRateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &ClientRateLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Limit(cfg.RequestsPerSecond),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether client may make a request now, and the tokens left.
func (rl *ClientRateLimiter) Allow(client string) (bool, int) {
	now := rl.now()

	rl.mu.Lock()
	entry, ok := rl.limiters[client]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[client] = entry
	}
	entry.lastAccess = now
	if now.Sub(rl.lastSweep) >= limiterSweepInterval {
		rl.sweep(now)
	}
	rl.mu.Unlock()

	allowed := entry.limiter.AllowN(now, 1)
	return allowed, int(entry.limiter.TokensAt(now))
}

func (rl *ClientRateLimiter) sweep(now time.Time) {
	threshold := now.Add(-limiterIdleTTL)
	for client, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, client)
		}
	}
	rl.lastSweep = now
}

// RateLimit rejects clients that exceed their bucket with 429. A nil limiter
// disables limiting.
func RateLimit(limiter *ClientRateLimiter, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		client := c.ClientIP()
		allowed, remaining := limiter.Allow(client)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger.WithFields(logrus.Fields{
				"client_ip":  client,
				"request_id": c.GetString("request_id"),
			}).Warn("Rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":      "RATE_LIMIT_EXCEEDED",
					"message":   "Rate limit exceeded. Please try again later.",
					"requestId": c.GetString("request_id"),
				},
			})
			return
		}

		c.Next()
	}
}
