/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-28 19:02:16
 * @FilePath: \simple-diary\backend\internal\infra\backup\scheduler.go
 * @LastEditTime: 2026-01-29 08:40:51
 */
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yn01/simple-diary/backend/internal/bootstrapdata"
	"github.com/yn01/simple-diary/backend/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	filePrefix = "entries-"
	fileSuffix = ".json"
	// fileStampLayout 保证文件名按字典序即时间序。
	fileStampLayout = "20060102T150405.000Z"
	runTimeout      = 2 * time.Minute
)

// parser 接受 5 段或带秒的 6 段表达式，以及 @daily 之类的描述符。
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Options 描述定时备份的参数。
type Options struct {
	Schedule string
	Dir      string
	// Keep 为保留的快照数量，0 表示不清理。
	Keep   int
	Logger *zap.SugaredLogger
	Now    func() time.Time
}

// Scheduler 按 cron 表达式把全部日记导出到备份目录。
type Scheduler struct {
	cron   *cron.Cron
	store  bootstrapdata.Store
	opts   Options
	logger *zap.SugaredLogger
}

// NewScheduler 校验表达式并注册任务，调用 Start 后才会开始执行。
func NewScheduler(store bootstrapdata.Store, opts Options) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if strings.TrimSpace(opts.Schedule) == "" {
		return nil, errors.New("backup schedule is required")
	}
	if opts.Dir == "" {
		return nil, errors.New("backup dir is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	schedule, err := parser.Parse(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse backup schedule %q: %w", opts.Schedule, err)
	}

	s := &Scheduler{store: store, opts: opts, logger: logger}
	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(s.run))
	return s, nil
}

// Start 在后台启动调度。
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infow("backup scheduler started", "schedule", s.opts.Schedule, "dir", s.opts.Dir, "keep", s.opts.Keep)
}

// Stop 停止调度并等待正在执行的备份结束，ctx 到期时直接返回。
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		metrics.RecordBackup(metrics.ResultError)
		s.logger.Errorw("scheduled backup failed", "error", err)
		return
	}
	metrics.RecordBackup(metrics.ResultOK)
}

// RunOnce 立即导出一份带时间戳的快照，并按 Keep 清理旧文件。
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	name := filePrefix + s.opts.Now().UTC().Format(fileStampLayout) + fileSuffix
	path, err := bootstrapdata.ExportSnapshot(ctx, s.store, bootstrapdata.ExportOptions{
		OutputDir: s.opts.Dir,
		FileName:  name,
		Now:       s.opts.Now,
		Logger:    s.logger,
	})
	if err != nil {
		return "", err
	}
	if err := s.prune(); err != nil {
		s.logger.Warnw("prune old backups failed", "dir", s.opts.Dir, "error", err)
	}
	return path, nil
}

func (s *Scheduler) prune() error {
	if s.opts.Keep <= 0 {
		return nil
	}
	dirEntries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return err
	}

	var backups []string
	for _, item := range dirEntries {
		name := item.Name()
		if item.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		backups = append(backups, name)
	}
	if len(backups) <= s.opts.Keep {
		return nil
	}

	sort.Strings(backups)
	var errs []error
	for _, name := range backups[:len(backups)-s.opts.Keep] {
		if err := os.Remove(filepath.Join(s.opts.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// cronLogger 把 cron 的日志接到 zap 上。
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
