package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger prints one access line per request with request and actor ids.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		actor := GetActor(c)
		log.Printf("[HTTP] request_id=%s actor_id=%d method=%s path=%s status=%d latency_ms=%.3f ip=%s",
			actor.RequestID,
			actor.UserID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			float64(latency.Microseconds())/1000.0,
			c.ClientIP(),
		)
	}
}
