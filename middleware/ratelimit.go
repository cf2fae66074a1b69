package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// FixedWindowLimiter counts requests per key in fixed windows.
// State lives in process memory, so limits apply per instance.
type FixedWindowLimiter struct {
	limit     int
	window    time.Duration
	now       func() time.Time
	mu        sync.Mutex
	windows   map[string]*fixedWindow
	lastPrune time.Time
}

type fixedWindow struct {
	start time.Time
	count int
}

// NewFixedWindowLimiter allows limit requests per key per window
func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*fixedWindow),
	}
}

// Allow counts a request for key. When the limit is reached it returns false
// and the time left until the window resets.
func (l *FixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &fixedWindow{start: now}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

// prune drops expired windows at most once per window
func (l *FixedWindowLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
	l.lastPrune = now
}

// RateLimit rejects a client IP that exceeds the limiter's budget for this route prefix
func RateLimit(limiter *FixedWindowLimiter, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP() + "|" + prefix)
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			abortWithError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please retry later")
			return
		}

		c.Next()
	}
}
