package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/logger"
	"github.com/jobhive/jobhive/pkg/metrics"
	"github.com/jobhive/jobhive/pkg/response"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimit limits requests per (clientIP, route) within a fixed window using store.
// A store failure lets the request through.
func RateLimit(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		count, ttl, err := store.Increment(c.Request.Context(), rateLimitKeyPrefix+c.ClientIP()+"|"+path, window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("rate limit store unavailable",
				zap.String("path", path),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if count > maxRequests {
			metrics.RateLimited.WithLabelValues(path).Inc()
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			response.Abort(c, errors.ErrRateLimit)
			return
		}

		c.Next()
	}
}
