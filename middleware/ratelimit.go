package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweep = 5 * time.Minute
	limiterIdle  = 10 * time.Minute
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByIP charges the client address.
func ByIP(c *gin.Context) string { return c.ClientIP() }

// ByRoom charges the room in the path, falling back to the client address
// for routes without one. Commands against one character share a bucket
// wherever they come from.
func ByRoom(c *gin.Context) string {
	if room := Room(c); room != "" {
		return "room:" + room
	}
	return c.ClientIP()
}

type keyLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// RateLimit provides token-bucket rate limiting per key.
// r = requests per second, b = burst size. Idle buckets are swept until
// ctx is done.
func RateLimit(ctx context.Context, r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ByIP
	}
	limiters := &sync.Map{}

	go func() {
		ticker := time.NewTicker(limiterSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				cutoff := now.Add(-limiterIdle)
				limiters.Range(func(k, v any) bool {
					kl := v.(*keyLimiter)
					kl.mu.Lock()
					stale := kl.lastSeen.Before(cutoff)
					kl.mu.Unlock()
					if stale {
						limiters.Delete(k)
					}
					return true
				})
			}
		}
	}()

	allow := func(k string) bool {
		v, _ := limiters.LoadOrStore(k, &keyLimiter{limiter: rate.NewLimiter(r, b)})
		kl := v.(*keyLimiter)
		kl.mu.Lock()
		kl.lastSeen = time.Now()
		kl.mu.Unlock()
		return kl.limiter.Allow()
	}

	return func(c *gin.Context) {
		if !allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
