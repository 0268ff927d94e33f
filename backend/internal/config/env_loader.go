/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 17:58:06
 * @FilePath: \simple-diary\backend\internal\config\env_loader.go
 * @LastEditTime: 2026-01-27 15:40:02
 */
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	envSkipEnvLoad = "CONFIG_SKIP_ENV_LOAD"
	envExplicitEnv = "DIARY_ENV_FILE"
)

var (
	envOnce     sync.Once
	envOnceLock sync.Mutex
	skipEnvLoad bool
	loadedFiles []string
)

// LoadEnvFiles 只加载一次环境变量文件。
// DIARY_ENV_FILE 指定时只读取该文件；否则自当前目录向上查找 .env 与 .env.local，
// .env.local 后加载，优先级更高。
func LoadEnvFiles() {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	if skipEnvLoad || os.Getenv(envSkipEnvLoad) == "1" {
		return
	}

	envOnce.Do(func() {
		loadedFiles = nil
		if explicit := strings.TrimSpace(os.Getenv(envExplicitEnv)); explicit != "" {
			if err := godotenv.Overload(explicit); err == nil {
				loadedFiles = append(loadedFiles, explicit)
			}
			return
		}
		for _, name := range []string{".env", ".env.local"} {
			if path, ok := findEnvFile(name); ok {
				if err := godotenv.Overload(path); err == nil {
					loadedFiles = append(loadedFiles, path)
				}
			}
		}
	})
}

// LoadedEnvFiles 返回实际加载过的环境变量文件，启动日志里会打印出来。
func LoadedEnvFiles() []string {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()
	return append([]string(nil), loadedFiles...)
}

// SetEnvFileLoadingForTest 开关自动加载，仅供测试使用。
func SetEnvFileLoadingForTest(enabled bool) {
	envOnceLock.Lock()
	defer envOnceLock.Unlock()

	skipEnvLoad = !enabled
	envOnce = sync.Once{}
	loadedFiles = nil
}

func findEnvFile(name string) (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
