package middleware

import (
	"net/http"
	"sync"

	"github.com/crowdvault/escrow-backend/internal/auth"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CallerRateLimit throttles commands per caller address. Each caller gets its
// own token bucket; unknown callers share the client IP bucket so the limiter
// also covers unauthenticated query routes.
func CallerRateLimit(perSecond float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters[key] = l
		}
		return l
	}

	return func(c *gin.Context) {
		key := auth.CallerAddress(c)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiterFor(key).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
