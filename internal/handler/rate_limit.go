package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/youthloop/webgate/internal/dto"
	"github.com/youthloop/webgate/internal/ratelimit"
)

// RateLimitMiddleware throttles an endpoint with the Redis sliding-window
// limiter, keyed by keyFunc.
func RateLimitMiddleware(limiter *ratelimit.Limiter, logger *zap.Logger, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			// The limiter already chose to allow on infrastructure
			// failure; keep serving but leave a trace.
			logger.Warn("rate limiter unavailable", zap.Error(err))
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "Too Many Requests",
				Message: "rate limit exceeded, try again in " + result.RetryAfter.String(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPBasedKey extracts the rate limit key from the client IP.
func IPBasedKey(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}
	return c.ClientIP()
}
