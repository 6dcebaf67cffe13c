package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit gates requests with a single shared token bucket — the control
// API is one matchmaking service, not a multi-tenant one, so a single
// bucket per process (rather than per-client) matches the teacher's
// per-service ESPN_RATE_LIMIT-style global budget. rate.Limiter is safe for
// concurrent use, so no extra locking is needed here.
func RateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
