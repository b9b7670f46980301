package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/logger"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds per-client token bucket settings
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// EntryTTL drops limiters idle for longer than this
	EntryTTL time.Duration
	// KeyFunc picks the client key; defaults to the client IP
	KeyFunc func(*gin.Context) string
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	cfg      RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

// NewRateLimiter creates a limiter store
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 5 * time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{cfg: cfg, limiters: make(map[string]*limiterEntry)}
}

// Allow reports whether key may make one more request now
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	rl.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Cleanup removes limiters idle longer than EntryTTL
func (rl *RateLimiter) Cleanup() int {
	cutoff := time.Now().Add(-rl.cfg.EntryTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for k, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, k)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.cfg.KeyFunc(c)
		if !rl.Allow(key) {
			logger.Get().Warn("Rate limit exceeded", zap.String("client", key), zap.String("path", c.Request.URL.Path))
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
