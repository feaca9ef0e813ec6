package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatterbox-app/auth-service/internal/dto"
	"github.com/chatterbox-app/auth-service/internal/service"
)

// RateLimitMiddleware throttles requests per key. A limiter backend error
// fails open: blocking every login because Redis blinked is worse than
// letting a burst through.
func RateLimitMiddleware(rateLimiter *service.RateLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, err := rateLimiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		remaining, _ := rateLimiter.Remaining(c.Request.Context(), key, limit)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "Too Many Requests",
				Message: "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPBasedKey extracts the rate limit key from the client IP.
func IPBasedKey(c *gin.Context) string {
	ip := c.GetHeader("X-Forwarded-For")
	if ip != "" {
		// The first entry is the originating client.
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	} else {
		ip = c.ClientIP()
	}
	return ip
}
