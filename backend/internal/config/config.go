package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DriverSQLite 是默认的本地存储。
	DriverSQLite = "sqlite"
	// DriverMySQL 用于部署到共享数据库的场景。
	DriverMySQL = "mysql"
)

const (
	defaultPort            = "3000"
	defaultDatabasePath    = "data/diary.db"
	defaultFrontendURL     = "*"
	defaultRedisPort       = 6379
	defaultRateLimitMax    = 120
	defaultRateLimitWindow = time.Minute
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultBackupDir       = "data/backups"
	defaultBackupKeep      = 14
)

// Config 汇总服务运行所需的全部配置。
type Config struct {
	Port         string
	DatabasePath string
	Driver       string
	MySQL        MySQLSettings
	FrontendURL  string
	Redis        RedisSettings
	RateLimit    RateLimitSettings
	HTTP         HTTPSettings
	Backup       BackupSettings
}

// MySQLSettings 仅在 DB_DRIVER=mysql 时生效。
type MySQLSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Params   string
}

// RedisSettings 描述可选的 Redis 连接，REDIS_ENDPOINT 为空表示不启用。
type RedisSettings struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled 判断是否配置了 Redis。
func (r RedisSettings) Enabled() bool {
	return r.Host != ""
}

// RateLimitSettings 控制按客户端 IP 的固定窗口限流。
type RateLimitSettings struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

// HTTPSettings 控制 http.Server 的超时参数。
type HTTPSettings struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// BackupSettings 控制定时导出快照，Schedule 为空表示关闭。
// Keep 为保留的快照个数，0 表示不清理。
type BackupSettings struct {
	Schedule string
	Dir      string
	Keep     int
}

// Load 读取环境变量（含 .env 文件）并校验，返回最终配置。
func Load() (Config, error) {
	LoadEnvFiles()

	cfg := Config{
		Port:         envOrDefault("PORT", defaultPort),
		DatabasePath: normalisePath(envOrDefault("DATABASE_PATH", defaultDatabasePath)),
		Driver:       strings.ToLower(envOrDefault("DB_DRIVER", DriverSQLite)),
		FrontendURL:  envOrDefault("FRONTEND_URL", defaultFrontendURL),
		MySQL: MySQLSettings{
			Host:     strings.TrimSpace(os.Getenv("MYSQL_HOST")),
			Username: strings.TrimSpace(os.Getenv("MYSQL_USERNAME")),
			Password: os.Getenv("MYSQL_PASSWORD"),
			Database: strings.TrimSpace(os.Getenv("MYSQL_DATABASE")),
			Params:   strings.TrimSpace(os.Getenv("MYSQL_PARAMS")),
		},
		Backup: BackupSettings{
			Schedule: strings.TrimSpace(os.Getenv("BACKUP_SCHEDULE")),
			Dir:      normalisePath(envOrDefault("BACKUP_DIR", defaultBackupDir)),
		},
	}

	var errs []error

	if keep, err := intFromEnv("BACKUP_KEEP", defaultBackupKeep); err != nil {
		errs = append(errs, err)
	} else {
		cfg.Backup.Keep = keep
	}

	if port, err := intFromEnv("MYSQL_PORT", 0); err != nil {
		errs = append(errs, err)
	} else {
		cfg.MySQL.Port = port
	}

	redis, err := loadRedisSettings()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Redis = redis

	cfg.RateLimit = RateLimitSettings{Enabled: true, MaxRequests: defaultRateLimitMax, Window: defaultRateLimitWindow}
	if enabled, err := boolFromEnv("RATE_LIMIT_ENABLED", true); err != nil {
		errs = append(errs, err)
	} else {
		cfg.RateLimit.Enabled = enabled
	}
	if maxRequests, err := intFromEnv("RATE_LIMIT_MAX_REQUESTS", defaultRateLimitMax); err != nil {
		errs = append(errs, err)
	} else {
		cfg.RateLimit.MaxRequests = maxRequests
	}
	if window, err := durationFromEnv("RATE_LIMIT_WINDOW", defaultRateLimitWindow); err != nil {
		errs = append(errs, err)
	} else {
		cfg.RateLimit.Window = window
	}

	cfg.HTTP = HTTPSettings{ReadTimeout: defaultReadTimeout, WriteTimeout: defaultWriteTimeout, ShutdownTimeout: defaultShutdownTimeout}
	if d, err := durationFromEnv("HTTP_READ_TIMEOUT", defaultReadTimeout); err != nil {
		errs = append(errs, err)
	} else {
		cfg.HTTP.ReadTimeout = d
	}
	if d, err := durationFromEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout); err != nil {
		errs = append(errs, err)
	} else {
		cfg.HTTP.WriteTimeout = d
	}
	if d, err := durationFromEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		errs = append(errs, err)
	} else {
		cfg.HTTP.ShutdownTimeout = d
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 校验各项配置之间的约束。
func (c Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port))
	}

	switch c.Driver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for sqlite"))
		}
	case DriverMySQL:
		if c.MySQL.Host == "" {
			errs = append(errs, errors.New("MYSQL_HOST is required when DB_DRIVER=mysql"))
		}
		if c.MySQL.Username == "" {
			errs = append(errs, errors.New("MYSQL_USERNAME is required when DB_DRIVER=mysql"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_MAX_REQUESTS must be positive"))
		}
		if c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
		}
	}

	if !c.AllowAllOrigins() {
		origins := c.FrontendOrigins()
		if len(origins) == 0 {
			errs = append(errs, errors.New("FRONTEND_URL must be * or a comma separated list of origins"))
		}
		for _, origin := range origins {
			if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
				errs = append(errs, fmt.Errorf("FRONTEND_URL origin %q must start with http:// or https://", origin))
			}
		}
	}

	if c.Backup.Keep < 0 {
		errs = append(errs, errors.New("BACKUP_KEEP must not be negative"))
	}

	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// Addr 返回 http.Server 监听地址。
func (c Config) Addr() string {
	return ":" + c.Port
}

// AllowAllOrigins 判断 CORS 是否放开所有来源。
func (c Config) AllowAllOrigins() bool {
	return strings.TrimSpace(c.FrontendURL) == "*"
}

// FrontendOrigins 把逗号分隔的 FRONTEND_URL 拆成来源列表。
func (c Config) FrontendOrigins() []string {
	var origins []string
	for _, part := range strings.Split(c.FrontendURL, ",") {
		if trimmed := strings.TrimRight(strings.TrimSpace(part), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func loadRedisSettings() (RedisSettings, error) {
	endpoint := strings.TrimSpace(os.Getenv("REDIS_ENDPOINT"))
	if endpoint == "" {
		return RedisSettings{}, nil
	}

	host, port, err := parseEndpointWithDefault(endpoint, defaultRedisPort)
	if err != nil {
		return RedisSettings{}, fmt.Errorf("invalid REDIS_ENDPOINT: %w", err)
	}

	db, err := intFromEnv("REDIS_DB", 0)
	if err != nil {
		return RedisSettings{}, err
	}

	return RedisSettings{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func parseEndpointWithDefault(endpoint string, defaultPort int) (string, int, error) {
	if !strings.Contains(endpoint, ":") {
		return endpoint, defaultPort, nil
	}

	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func envOrDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return val, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return val, nil
}

// durationFromEnv 接受 time.ParseDuration 格式，纯数字按秒处理。
func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return val, nil
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
// ":memory:" 与 "file:" 开头的 SQLite DSN 原样返回。
func normalisePath(raw string) string {
	if raw == "" || raw == ":memory:" || strings.HasPrefix(raw, "file:") {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
