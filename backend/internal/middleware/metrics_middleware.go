package middleware

import (
	"time"

	"github.com/yn01/simple-diary/backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录每个请求的状态码与耗时，路由标签使用注册时的模板（如 /api/entries/:id）。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
