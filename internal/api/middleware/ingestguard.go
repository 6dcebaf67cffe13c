package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admiralorbiter/okqueue/internal/ingest"
)

// IngestGuard rejects bulk ingest_players calls that exceed limiter's
// per-caller token-bucket budget, keyed by client IP.
func IngestGuard(limiter *ingest.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limiter.Allow(c.ClientIP()); err != nil {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}
