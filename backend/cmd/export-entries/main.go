package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/yn01/simple-diary/backend/internal/app"
	"github.com/yn01/simple-diary/backend/internal/bootstrapdata"
	"github.com/yn01/simple-diary/backend/internal/config"
	"github.com/yn01/simple-diary/backend/internal/infra/logger"
	"github.com/yn01/simple-diary/backend/internal/repository"
)

var outputDir = flag.String("output-dir", "", "指定导出 JSON 存放目录，默认使用 DIARY_SNAPSHOT_DIR 或 data/snapshot")

func main() {
	flag.Parse()

	dest := strings.TrimSpace(*outputDir)
	if dest == "" {
		dest = bootstrapdata.ResolveDataDir()
	}

	zapLogger, err := logger.Init()
	if err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()
	sugar := zapLogger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("load config failed", "error", err)
	}
	// 导出不需要限流用的 Redis。
	cfg.Redis = config.RedisSettings{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := app.InitResources(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("init resources failed", "error", err)
	}
	defer func() {
		if cerr := resources.Close(); cerr != nil {
			sugar.Warnw("close resources failed", "error", cerr)
		}
	}()

	path, err := bootstrapdata.ExportSnapshot(ctx, repository.NewEntryRepository(resources.DB), bootstrapdata.ExportOptions{
		OutputDir: dest,
		Logger:    sugar.With("component", "export-entries"),
	})
	if err != nil {
		sugar.Fatalw("export snapshot failed", "error", err)
	}

	sugar.Infow("export snapshot completed", "path", path)
}
