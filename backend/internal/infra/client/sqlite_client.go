/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-27 14:02:51
 * @FilePath: \simple-diary\backend\internal\infra\client\sqlite_client.go
 * @LastEditTime: 2026-01-27 14:02:51
 */
package client

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSQLiteBusyTimeoutMS = 5000

// NewGORMSQLite 打开 SQLite 数据库并返回 ORM 与底层 *sql.DB。
// path 可以是文件路径、":memory:" 或以 "file:" 开头的 DSN；文件路径的父目录不存在时会自动创建。
func NewGORMSQLite(path string, logLevel gormlogger.LogLevel) (*gorm.DB, *sql.DB, error) {
	dsn, err := buildSQLiteDSN(path)
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open gorm sqlite: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql db: %w", err)
	}

	// 单连接：写操作由 SQLite 串行执行，内存库也只在同一连接内可见。
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return gormDB, sqlDB, nil
}

func buildSQLiteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("sqlite path is required")
	}
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", path, defaultSQLiteBusyTimeoutMS), nil
}
