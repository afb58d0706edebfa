// Package middleware provides the ambient gin middleware: CORS, security
// headers, structured request logging, and Redis-backed rate limiting.
// Grounded on the teacher's shared/middleware/middleware.go shape, with the
// teacher's own logging/rate-limit stubs replaced by real zap logging and a
// real Redis Incr+Expire limiter.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/5-VED/notification-dispatcher/database"
	"github.com/5-VED/notification-dispatcher/responses"
)

// CORS permits cross-origin requests from any origin (wildcard
// Access-Control-Allow-Origin).
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecurityHeaders sets the standard defensive response headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestLogger emits one structured log line per request via zap.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// RateLimiter enforces a fixed requests-per-window budget per client IP and
// route,
// backed by Redis INCR+EXPIRE (grounded on the teacher's
// CacheManager.CheckRateLimit pattern).
type RateLimiter struct {
	redis  *database.RedisDB
	limit  int64
	window time.Duration
}

// NewRateLimiter builds a RateLimiter allowing limit requests per window.
func NewRateLimiter(redis *database.RedisDB, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: redis, limit: int64(limit), window: window}
}

// Middleware returns the gin handler enforcing the configured budget.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		count, err := r.redis.Incr(c.Request.Context(), key)
		if err != nil {
			// Redis unavailable must not take down the request surface;
			// degrade open.
			c.Next()
			return
		}
		if count == 1 {
			_ = r.redis.Expire(c.Request.Context(), key, r.window)
		}

		if count > r.limit {
			responses.SendErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
