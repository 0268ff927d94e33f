/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 20:51:28
 * @FilePath: \simple-diary\backend\internal\bootstrap\bootstrap.go
 * @LastEditTime: 2026-01-29 09:15:27
 */
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yn01/simple-diary/backend/internal/app"
	"github.com/yn01/simple-diary/backend/internal/handler"
	"github.com/yn01/simple-diary/backend/internal/infra/backup"
	"github.com/yn01/simple-diary/backend/internal/infra/metrics"
	"github.com/yn01/simple-diary/backend/internal/infra/ratelimit"
	"github.com/yn01/simple-diary/backend/internal/middleware"
	"github.com/yn01/simple-diary/backend/internal/repository"
	"github.com/yn01/simple-diary/backend/internal/server"
	entrysvc "github.com/yn01/simple-diary/backend/internal/service/entry"

	"go.uber.org/zap"
)

// Application 汇总运行期组件，由 cmd/server 启动。
type Application struct {
	Resources *app.Resources
	EntrySvc  *entrysvc.Service
	Repo      *repository.EntryRepository
	Router    http.Handler
	// Backup 未配置 BACKUP_SCHEDULE 时为 nil。
	Backup *backup.Scheduler
}

// BuildApplication 依次组装 repository -> service -> handler -> router。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources) (*Application, error) {
	if resources == nil || resources.DB == nil {
		return nil, fmt.Errorf("resources are not initialised")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg := resources.Config

	metrics.MustRegister()

	entryRepo := repository.NewEntryRepository(resources.DB)
	entryService := entrysvc.NewService(entryRepo)
	entryHandler := handler.NewEntryHandler(entryService)
	var pinger handler.Pinger
	if resources.SQL != nil {
		pinger = resources.SQL
	}
	healthHandler := handler.NewHealthHandler(pinger)

	var limiter ratelimit.Limiter
	if resources.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(resources.Redis, "")
	} else {
		limiter = ratelimit.NewMemoryLimiter()
		if cfg.RateLimit.Enabled {
			logger.Infow("using in-memory rate limiter; limits are per process")
		}
	}
	rateLimit := middleware.NewRateLimitMiddleware(limiter, middleware.RateLimitConfig{
		Enabled:     cfg.RateLimit.Enabled,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
	})

	router := server.NewRouter(server.RouterOptions{
		EntryHandler:  entryHandler,
		HealthHandler: healthHandler,
		RateLimit:     rateLimit,
		CORS: server.CORSOptions{
			AllowAllOrigins: cfg.AllowAllOrigins(),
			Origins:         cfg.FrontendOrigins(),
		},
	})

	application := &Application{
		Resources: resources,
		EntrySvc:  entryService,
		Repo:      entryRepo,
		Router:    router,
	}

	if cfg.Backup.Schedule != "" {
		scheduler, err := backup.NewScheduler(entryRepo, backup.Options{
			Schedule: cfg.Backup.Schedule,
			Dir:      cfg.Backup.Dir,
			Keep:     cfg.Backup.Keep,
			Logger:   logger.With("component", "backup"),
		})
		if err != nil {
			return nil, fmt.Errorf("init backup scheduler: %w", err)
		}
		application.Backup = scheduler
	}

	return application, nil
}
