/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-27 16:05:48
 * @FilePath: \simple-diary\backend\internal\infra\migrations\migrations.go
 * @LastEditTime: 2026-01-27 16:05:48
 */
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// files 按方言分目录保存建表脚本。
//
//go:embed sqlite/*.sql mysql/*.sql
var files embed.FS

// Up 对 gorm 连接执行全部未应用的迁移，方言由 Dialector 名称决定。
func Up(ctx context.Context, db *gorm.DB, logger *zap.SugaredLogger) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	dialect, dir, err := resolveDialect(db.Dialector.Name())
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	sub, err := fs.Sub(files, dir)
	if err != nil {
		return fmt.Errorf("open migrations dir %s: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, sqlDB, sub)
	if err != nil {
		return fmt.Errorf("init goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Infow("migration applied", "source", res.Source.Path, "duration", res.Duration)
	}
	return nil
}

func resolveDialect(name string) (goose.Dialect, string, error) {
	switch name {
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, "sqlite", nil
	case "mysql":
		return goose.DialectMySQL, "mysql", nil
	default:
		return "", "", fmt.Errorf("unsupported dialect %q", name)
	}
}
