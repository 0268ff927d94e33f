package main

import (
	"context"
	"errors"
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

var (
	inputPath    = flag.String("input", "", "指定快照文件，优先于 -data-dir")
	dataDir      = flag.String("data-dir", "", "指定快照目录，默认读取 DIARY_SNAPSHOT_DIR")
	databasePath = flag.String("database", "", "覆盖 DATABASE_PATH，仅对 sqlite 生效")
)

// main 把 JSON 快照导入空的日记库，库中已有数据时直接退出。
func main() {
	flag.Parse()

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
	cfg.Redis = config.RedisSettings{}
	if override := strings.TrimSpace(*databasePath); override != "" {
		cfg.DatabasePath = override
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resources, err := app.InitResources(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("initialise resources failed", "error", err)
	}
	defer func() {
		if closeErr := resources.Close(); closeErr != nil {
			sugar.Warnw("close resources failed", "error", closeErr)
		}
	}()

	imported, err := bootstrapdata.SeedDatabase(ctx, repository.NewEntryRepository(resources.DB), bootstrapdata.Options{
		DataDir: strings.TrimSpace(*dataDir),
		Path:    strings.TrimSpace(*inputPath),
		Logger:  sugar.With("component", "seed-entries"),
	})
	if errors.Is(err, bootstrapdata.ErrStoreNotEmpty) {
		sugar.Warnw("database already has entries, seed skipped", "database", cfg.DatabasePath)
		return
	}
	if err != nil {
		sugar.Fatalw("seed database failed", "error", err)
	}

	sugar.Infow("seed completed", "imported", imported)
}
