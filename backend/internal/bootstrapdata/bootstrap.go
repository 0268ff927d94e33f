package bootstrapdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yn01/simple-diary/backend/internal/domain/entry"

	"go.uber.org/zap"
)

const (
	envDataDir             = "DIARY_SNAPSHOT_DIR"
	defaultSnapshotDataDir = "data/snapshot"
	// SnapshotFilename 是默认的快照文件名。
	SnapshotFilename = "entries.json"
	snapshotVersion  = 1
)

// ErrStoreNotEmpty 表示目标库已有数据，导入被跳过。
var ErrStoreNotEmpty = errors.New("entries table is not empty")

// Store 是快照导入导出依赖的存储能力，由 repository.EntryRepository 实现。
type Store interface {
	FindAll(ctx context.Context) ([]entry.Entry, error)
	Count(ctx context.Context) (int64, error)
	Restore(ctx context.Context, entries []entry.Entry) error
}

// Snapshot 是导出文件的结构。
type Snapshot struct {
	Version    int           `json:"version"`
	ExportedAt string        `json:"exported_at"`
	Entries    []entry.Entry `json:"entries"`
}

// ResolveDataDir 解析快照所在目录。
func ResolveDataDir() string {
	raw := strings.TrimSpace(os.Getenv(envDataDir))
	if raw == "" {
		return defaultSnapshotDataDir
	}
	return raw
}

type ExportOptions struct {
	OutputDir string
	// FileName 为空时使用 entries.json。
	FileName string
	Now      func() time.Time
	Logger   *zap.SugaredLogger
}

// ExportSnapshot 读取全部日记写入 JSON 快照，返回生成的文件路径。
func ExportSnapshot(ctx context.Context, store Store, opts ExportOptions) (string, error) {
	if store == nil {
		return "", errors.New("store is nil")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = ResolveDataDir()
	}
	if opts.FileName == "" {
		opts.FileName = SnapshotFilename
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	entries, err := store.FindAll(ctx)
	if err != nil {
		return "", fmt.Errorf("load entries: %w", err)
	}

	path := filepath.Join(opts.OutputDir, opts.FileName)
	snapshot := Snapshot{
		Version:    snapshotVersion,
		ExportedAt: entry.FormatTimestamp(opts.Now()),
		Entries:    entries,
	}
	if err := writeJSON(path, snapshot); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	logger.Infow("exported entries snapshot", "path", path, "entries", len(entries))
	return path, nil
}

type Options struct {
	DataDir string
	// Path 指定快照文件，优先于 DataDir。
	Path   string
	Logger *zap.SugaredLogger
}

// SeedDatabase 把快照导入空库，返回导入条数。快照不存在时跳过，库中已有数据时返回 ErrStoreNotEmpty。
func SeedDatabase(ctx context.Context, store Store, opts Options) (int, error) {
	if store == nil {
		return 0, errors.New("store is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	path := opts.Path
	if path == "" {
		dir := opts.DataDir
		if dir == "" {
			dir = ResolveDataDir()
		}
		path = filepath.Join(dir, SnapshotFilename)
	}

	snapshot, err := ReadSnapshot(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Infow("snapshot not found, skip", "path", path)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(snapshot.Entries) == 0 {
		logger.Infow("snapshot empty, skip", "path", path)
		return 0, nil
	}

	total, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	if total > 0 {
		return 0, ErrStoreNotEmpty
	}

	if err := store.Restore(ctx, snapshot.Entries); err != nil {
		return 0, fmt.Errorf("restore snapshot: %w", err)
	}

	logger.Infow("snapshot imported", "path", path, "entries", len(snapshot.Entries), "exported_at", snapshot.ExportedAt)
	return len(snapshot.Entries), nil
}

// ReadSnapshot 解析快照文件，同时兼容只包含日记数组的旧格式。
func ReadSnapshot(path string) (Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var entries []entry.Entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
		}
		return Snapshot{Version: snapshotVersion, Entries: entries}, nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snapshot.Version > snapshotVersion {
		return Snapshot{}, fmt.Errorf("snapshot %s has unsupported version %d", path, snapshot.Version)
	}
	return snapshot, nil
}

// writeJSON 先写临时文件再重命名，避免中途失败留下半个快照。
func writeJSON(path string, payload any) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ensureDir 保证目录存在，用于写入导出文件。
func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
