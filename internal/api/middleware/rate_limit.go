package middleware

import (
	"fmt"
	"math"
	"time"

	"chefsire/internal/api/handlers"
	"chefsire/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRateLimiter 創建令牌桶：每個時間窗 requests 個請求，可瞬間用完
func NewRateLimiter(requests int, window time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	if requests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(requests, window)
	retryAfter := fmt.Sprintf("%d", int(math.Ceil(window.Seconds()/float64(requests))))

	return func(c *gin.Context) {
		if !limiter.Allow() {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", retryAfter)
			handlers.WriteError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
