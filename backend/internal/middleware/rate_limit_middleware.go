/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 23:10:00
 * @FilePath: \simple-diary\backend\internal\middleware\rate_limit_middleware.go
 * @LastEditTime: 2026-01-28 15:36:09
 */
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	response "github.com/yn01/simple-diary/backend/internal/infra/common"
	appLogger "github.com/yn01/simple-diary/backend/internal/infra/logger"
	"github.com/yn01/simple-diary/backend/internal/infra/metrics"
	"github.com/yn01/simple-diary/backend/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitConfig 描述按客户端 IP 的限流参数。
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

// RateLimitMiddleware 基于 ratelimit.Limiter 对每个 IP 做固定窗口限流。
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	cfg     RateLimitConfig
	logger  *zap.SugaredLogger
}

// NewRateLimitMiddleware 构建限流中间件，limiter 为 nil 时直接放行。
func NewRateLimitMiddleware(limiter ratelimit.Limiter, cfg RateLimitConfig) *RateLimitMiddleware {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 120
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		cfg:     cfg,
		logger:  appLogger.S().With("component", "middleware.ratelimit"),
	}
}

// Handle 返回 Gin 中间件。限流器出错时放行，只记录告警。
func (m *RateLimitMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.cfg.Enabled || m.limiter == nil {
			c.Next()
			return
		}
		ip := strings.TrimSpace(c.ClientIP())
		if ip == "" {
			c.Next()
			return
		}

		res, err := m.limiter.Allow(c.Request.Context(), ip, m.cfg.MaxRequests, m.cfg.Window)
		if err != nil {
			m.logger.Warnw("rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.cfg.MaxRequests))
		if res.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			metrics.RecordRateLimited()
			m.logger.Infow("request rate limited", "ip", ip, "path", c.Request.URL.Path)
			response.Fail(c, http.StatusTooManyRequests, response.MsgTooManyRequests, nil)
			return
		}

		c.Next()
	}
}
