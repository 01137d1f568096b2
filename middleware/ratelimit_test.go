package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newRateLimitRouter(t *testing.T, r rate.Limit, b int, key KeyFunc) *gin.Engine {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng := gin.New()
	eng.Use(RateLimit(ctx, r, b, key))
	eng.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	eng.GET("/rooms/:name", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func hit(r *gin.Engine, path, ip string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Real-IP", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_AllowsFirst(t *testing.T) {
	r := newRateLimitRouter(t, 100, 5, nil)
	assert.Equal(t, http.StatusOK, hit(r, "/", "10.0.0.1"))
}

func TestRateLimit_Burst(t *testing.T) {
	r := newRateLimitRouter(t, 0.001, 3, ByIP) // near-zero refill so we exhaust quickly
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "/", "10.0.1.1"), "request %d should be allowed", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "/", "10.0.1.1"))
}

func TestRateLimit_PerIP(t *testing.T) {
	r := newRateLimitRouter(t, 0.001, 1, ByIP)
	for _, ip := range []string{"10.1.1.1", "10.1.1.2"} {
		assert.Equal(t, http.StatusOK, hit(r, "/", ip), "first request from %s should be OK", ip)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "/", "10.1.1.1"))
}

func TestRateLimit_ByRoom(t *testing.T) {
	r := newRateLimitRouter(t, 0.001, 1, ByRoom)
	assert.Equal(t, http.StatusOK, hit(r, "/rooms/alice", "10.2.0.1"))
	// Same room from another address shares the bucket.
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "/rooms/alice", "10.2.0.2"))
	assert.Equal(t, http.StatusOK, hit(r, "/rooms/bob", "10.2.0.1"))
	// No room in the path: charged to the address.
	assert.Equal(t, http.StatusOK, hit(r, "/", "10.2.0.1"))
}
