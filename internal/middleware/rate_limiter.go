package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/logging"
)

// UploadRateLimiter implements per-client rate limiting for pattern uploads
type UploadRateLimiter struct {
	perMinute int
	burst     int

	// In-memory tracking keyed by client IP
	clients sync.Map // string -> *clientLimit
}

type clientLimit struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// NewUploadRateLimiter creates a limiter allowing perMinute requests per
// client with the given burst. perMinute below 1 disables limiting.
func NewUploadRateLimiter(perMinute, burst int) *UploadRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &UploadRateLimiter{perMinute: perMinute, burst: burst}
}

// UploadRateLimiterFromEnv reads RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST.
func UploadRateLimiterFromEnv() *UploadRateLimiter {
	perMinute := config.GetInt("RATE_LIMIT_PER_MINUTE", 10)
	return NewUploadRateLimiter(perMinute, config.GetInt("RATE_LIMIT_BURST", perMinute))
}

// Enabled reports whether requests are limited at all.
func (l *UploadRateLimiter) Enabled() bool {
	return l.perMinute > 0
}

// Allow reports whether key may make another request now.
func (l *UploadRateLimiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}

	entry, _ := l.clients.LoadOrStore(key, &clientLimit{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.burst),
	})
	cl := entry.(*clientLimit)

	cl.mu.Lock()
	cl.lastSeen = time.Now()
	cl.mu.Unlock()

	return cl.limiter.Allow()
}

// RateLimit is a middleware that rejects clients over their budget with 429.
func (l *UploadRateLimiter) RateLimit() gin.HandlerFunc {
	retryAfter := "60"
	if l.Enabled() {
		retryAfter = strconv.Itoa(int(math.Ceil(60 / float64(l.perMinute))))
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			logging.WarnWithComponent(logging.ComponentServer, "Rate limit exceeded", "ip", ip, "path", c.FullPath())
			c.Header("Retry-After", retryAfter)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "api.rate_limited",
				"rate_limit": l.perMinute,
				"window":     "1 minute",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Cleanup removes clients idle for longer than maxIdle and returns how many
// were dropped.
func (l *UploadRateLimiter) Cleanup(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	removed := 0

	l.clients.Range(func(key, value any) bool {
		cl := value.(*clientLimit)
		cl.mu.Lock()
		idle := cl.lastSeen.Before(cutoff)
		cl.mu.Unlock()
		if idle {
			l.clients.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Run periodically drops idle clients until ctx is done.
func (l *UploadRateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Cleanup(interval); n > 0 {
				logging.DebugWithComponent(logging.ComponentServer, "Dropped idle rate limit entries", "count", n)
			}
		}
	}
}

// RequestSizeLimit rejects bodies larger than maxBytes with 413. Bodies
// without a declared length are capped while being read.
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			logging.WarnWithComponent(logging.ComponentServer, "Request too large",
				"size", c.Request.ContentLength, "limit", maxBytes, "ip", c.ClientIP())
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "api.too_large",
				"max_size":  fmt.Sprintf("%dMB", maxBytes>>20),
				"your_size": fmt.Sprintf("%dB", c.Request.ContentLength),
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
