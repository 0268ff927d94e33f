/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 19:55:11
 * @FilePath: \simple-diary\backend\cmd\server\main.go
 * @LastEditTime: 2026-01-29 11:20:43
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/yn01/simple-diary/backend/internal/app"
	"github.com/yn01/simple-diary/backend/internal/bootstrap"
	"github.com/yn01/simple-diary/backend/internal/config"
	"github.com/yn01/simple-diary/backend/internal/infra/logger"
)

func main() {
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
	if files := config.LoadedEnvFiles(); len(files) > 0 {
		sugar.Infow("env files loaded", "files", files)
	}

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

	application, err := bootstrap.BuildApplication(ctx, sugar, resources)
	if err != nil {
		sugar.Fatalw("build application failed", "error", err)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      application.Router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	if application.Backup != nil {
		application.Backup.Start()
	}

	serveErr := make(chan error, 1)
	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr, "driver", cfg.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		sugar.Infow("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			sugar.Errorw("http server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("http server shutdown failed", "error", err)
	}
	if application.Backup != nil {
		if err := application.Backup.Stop(shutdownCtx); err != nil {
			sugar.Warnw("backup scheduler stop failed", "error", err)
		}
	}
	sugar.Infow("server exited")
}
