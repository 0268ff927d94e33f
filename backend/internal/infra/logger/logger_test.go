package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "diary.log")
	l, err := buildLogger(Options{Level: "debug", Encoding: "json", FilePath: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	if err != nil {
		t.Fatalf("buildLogger: %v", err)
	}
	l.Info("entry created", zap.Int64("id", 7))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"entry created"`) || !strings.Contains(string(data), `"id":7`) {
		t.Fatalf("unexpected log content: %s", data)
	}
}

func TestBuildLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := buildLogger(Options{Level: "loud", FilePath: fileDisabled}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestLoadOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FILE", "off")
	t.Setenv("LOG_MAX_SIZE", "-3")
	t.Setenv("LOG_MAX_BACKUPS", "9")
	t.Setenv("LOG_COMPRESS", "false")

	opts := loadOptionsFromEnv()
	if opts.Level != "warn" || opts.Encoding != "json" || opts.FilePath != "off" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.MaxSize != 20 || opts.MaxBackups != 9 || opts.Compress {
		t.Fatalf("unexpected rotation options: %+v", opts)
	}
}

func TestReplaceSwapsGlobalLogger(t *testing.T) {
	nop := zap.NewNop()
	restore := Replace(nop)
	defer restore()

	if L() != nop {
		t.Fatalf("expected replaced logger")
	}
	S().Infow("ignored", "k", "v")
}
