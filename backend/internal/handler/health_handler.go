package handler

import (
	"context"
	"net/http"
	"time"

	appLogger "github.com/yn01/simple-diary/backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 用于探测存储是否可用，*sql.DB 满足该接口。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler 提供 /health 探活接口。
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewHealthHandler 构造探活 handler，db 为 nil 时只报告进程存活。
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		timeout: 2 * time.Second,
		logger:  appLogger.S().With("component", "health.handler"),
	}
}

// Health 返回 {"status":"ok"}，存储不可达时返回 503。
func (h *HealthHandler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warnw("database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
