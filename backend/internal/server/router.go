/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 18:20:44
 * @FilePath: \simple-diary\backend\internal\server\router.go
 * @LastEditTime: 2026-01-28 16:48:30
 */
package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/yn01/simple-diary/backend/internal/handler"
	response "github.com/yn01/simple-diary/backend/internal/infra/common"
	appLogger "github.com/yn01/simple-diary/backend/internal/infra/logger"
	"github.com/yn01/simple-diary/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CORSOptions 描述跨域配置，AllowAllOrigins 为 true 时忽略 Origins。
type CORSOptions struct {
	AllowAllOrigins bool
	Origins         []string
}

type RouterOptions struct {
	EntryHandler  *handler.EntryHandler
	HealthHandler *handler.HealthHandler
	RateLimit     *middleware.RateLimitMiddleware
	CORS          CORSOptions
	// Mode 为空时使用 gin.ReleaseMode。
	Mode string
	// AccessLog 为 nil 时访问日志写到标准输出。
	AccessLog io.Writer
}

// NewRouter 构建应用的 Gin Engine，汇总所有 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	mode := opts.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	logger := appLogger.S().With("component", "server.router")

	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	// panic 统一转成 500，细节只进日志。
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Errorw("panic recovered", "error", recovered, "path", c.Request.URL.Path, "request_id", middleware.GetRequestID(c))
		response.Fail(c, http.StatusInternalServerError, response.MsgInternal, nil)
	}))

	accessLog := opts.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    accessLog,
		SkipPaths: []string{"/health", "/metrics"},
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
				params.Keys["request_id"],
			)
		}),
	}))

	r.Use(cors.New(corsConfig(opts.CORS)))

	if opts.RateLimit != nil {
		r.Use(opts.RateLimit.Handle())
	}

	if opts.HealthHandler != nil {
		r.GET("/health", opts.HealthHandler.Health)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		if opts.EntryHandler != nil {
			opts.EntryHandler.RegisterRoutes(api.Group("/entries"))
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.MsgNotFound, nil)
	})

	return r
}

// corsConfig 对应 FRONTEND_URL：* 放开全部来源且不带凭证，否则只允许列出的来源并允许凭证。
func corsConfig(opts CORSOptions) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Type", middleware.HeaderRequestID, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if opts.AllowAllOrigins || len(opts.Origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = opts.Origins
	cfg.AllowCredentials = true
	return cfg
}
