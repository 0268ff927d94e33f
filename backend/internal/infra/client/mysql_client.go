/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 17:16:56
 * @FilePath: \simple-diary\backend\internal\infra\client\mysql_client.go
 * @LastEditTime: 2026-01-27 14:20:13
 */
package client

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	mysqlcfg "github.com/go-sql-driver/mysql"
	mysqlDriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultMySQLPort     = 3306
	defaultMySQLDatabase = "diary"
	defaultMySQLParams   = "charset=utf8mb4&parseTime=true&loc=UTC"
)

// MySQLConfig 描述 MySQL 连接所需的配置项。
type MySQLConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Params   string
}

// NewGORMMySQL 创建 GORM 连接并返回 ORM 与底层 *sql.DB，便于控制生命周期。
func NewGORMMySQL(cfg MySQLConfig, logLevel gormlogger.LogLevel) (*gorm.DB, *sql.DB, error) {
	dsn, err := BuildMySQLDSN(cfg)
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := gorm.Open(mysqlDriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open gorm mysql: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql db: %w", err)
	}

	sqlDB.SetConnMaxLifetime(60 * time.Minute)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("ping mysql: %w", err)
	}

	return gormDB, sqlDB, nil
}

// validateMySQLConfig 校验配置字段是否完整。
func validateMySQLConfig(cfg MySQLConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("mysql host is required")
	}
	if cfg.Username == "" {
		return fmt.Errorf("mysql username is required")
	}
	return nil
}

// BuildMySQLDSN 在通过校验后生成 MySQL DSN，多语句迁移需要 multiStatements。
func BuildMySQLDSN(cfg MySQLConfig) (string, error) {
	if err := validateMySQLConfig(cfg); err != nil {
		return "", err
	}

	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}
	database := cfg.Database
	if database == "" {
		database = defaultMySQLDatabase
	}
	params := strings.TrimSpace(cfg.Params)
	if params == "" {
		params = defaultMySQLParams
	}

	values, err := url.ParseQuery(params)
	if err != nil {
		return "", fmt.Errorf("parse mysql params: %w", err)
	}

	driverCfg := mysqlcfg.NewConfig()
	driverCfg.User = cfg.Username
	driverCfg.Passwd = cfg.Password
	driverCfg.Net = "tcp"
	driverCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	driverCfg.DBName = database
	driverCfg.MultiStatements = true
	driverCfg.ParseTime = true
	driverCfg.Loc = time.UTC
	for key := range values {
		switch key {
		case "parseTime", "loc", "multiStatements":
			continue
		}
		if driverCfg.Params == nil {
			driverCfg.Params = map[string]string{}
		}
		driverCfg.Params[key] = values.Get(key)
	}

	return driverCfg.FormatDSN(), nil
}
