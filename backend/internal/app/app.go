/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 19:54:47
 * @FilePath: \simple-diary\backend\internal\app\app.go
 * @LastEditTime: 2026-01-28 17:25:03
 */
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yn01/simple-diary/backend/internal/config"
	"github.com/yn01/simple-diary/backend/internal/infra/client"
	"github.com/yn01/simple-diary/backend/internal/infra/migrations"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Resources 持有进程级的外部连接，由 main 显式创建并在退出时 Close。
type Resources struct {
	Config config.Config
	DB     *gorm.DB
	SQL    *sql.DB
	// Redis 未配置时为 nil。
	Redis *redis.Client
}

// InitResources 打开数据库并执行迁移，配置了 REDIS_ENDPOINT 时同时连接 Redis。
func InitResources(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*Resources, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	gormDB, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	resources := &Resources{Config: cfg, DB: gormDB, SQL: sqlDB}

	if err := migrations.Up(ctx, gormDB, logger); err != nil {
		_ = resources.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Infow("database ready", "driver", cfg.Driver)

	if cfg.Redis.Enabled() {
		redisClient, err := client.NewRedisClient(ctx, client.RedisOptionsFromConfig(cfg.Redis))
		if err != nil {
			_ = resources.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		resources.Redis = redisClient
		logger.Infow("redis connected", "host", cfg.Redis.Host, "port", cfg.Redis.Port, "db", cfg.Redis.DB)
	}

	return resources, nil
}

func openDatabase(cfg config.Config) (*gorm.DB, *sql.DB, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		gormDB, sqlDB, err := client.NewGORMMySQL(client.MySQLConfig{
			Host:     cfg.MySQL.Host,
			Port:     cfg.MySQL.Port,
			Username: cfg.MySQL.Username,
			Password: cfg.MySQL.Password,
			Database: cfg.MySQL.Database,
			Params:   cfg.MySQL.Params,
		}, gormlogger.Warn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		return gormDB, sqlDB, nil
	case config.DriverSQLite, "":
		gormDB, sqlDB, err := client.NewGORMSQLite(cfg.DatabasePath, gormlogger.Warn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return gormDB, sqlDB, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close 依次关闭 Redis 与数据库连接，可以重复调用。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		r.Redis = nil
	}
	if r.SQL != nil {
		if err := r.SQL.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		r.SQL = nil
	}
	return errors.Join(errs...)
}
