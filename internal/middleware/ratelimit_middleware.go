package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intertool/cardinsight_api/internal/utils"
)

// FailedAttemptLimiter counts failed login attempts per IP in a fixed window.
type FailedAttemptLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	limit    int
	window   time.Duration
	now      func() time.Time
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

// NewFailedAttemptLimiter allows limit failures per window per IP. Stale
// entries are swept until stop is closed.
func NewFailedAttemptLimiter(limit int, window time.Duration, stop <-chan struct{}) *FailedAttemptLimiter {
	rl := &FailedAttemptLimiter{
		attempts: make(map[string]*attemptInfo),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(stop)
	return rl
}

// Blocked reports whether ip has used up its failures for the current window.
func (r *FailedAttemptLimiter) Blocked(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.attempts[ip]
	if !ok {
		return false
	}
	if r.now().Sub(info.firstAt) > r.window {
		delete(r.attempts, ip)
		return false
	}
	return info.count >= r.limit
}

// Fail records one failed attempt from ip.
func (r *FailedAttemptLimiter) Fail(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, ok := r.attempts[ip]
	if !ok || now.Sub(info.firstAt) > r.window {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return
	}
	info.count++
}

// Handle rejects blocked IPs before the handler runs and counts 401
// responses as failures.
func (r *FailedAttemptLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if r.Blocked(ip) {
			utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many failed attempts, please try again later")
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() == 401 {
			r.Fail(ip)
		}
	}
}

func (r *FailedAttemptLimiter) cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := r.now()
			for ip, info := range r.attempts {
				if now.Sub(info.firstAt) > r.window {
					delete(r.attempts, ip)
				}
			}
			r.mu.Unlock()
		}
	}
}
