// Package db 提供 GORM 初始化、连接池配置与 slog 日志桥接
package db

import (
	"context"
	"fmt"
	"time"

	pkgLogger "github.com/wyfcoding/mortgagebank/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 数据库配置
type Config struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int
	LogEnabled         bool
	SlowQueryThreshold int
}

// Dialector 根据驱动名选择 GORM 方言
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Init 初始化数据库连接
func Init(ctx context.Context, cfg Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(cfg.LogEnabled, time.Duration(cfg.SlowQueryThreshold)*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pkgLogger.Info(ctx, "Database connected successfully", "driver", cfg.Driver)
	return gdb, nil
}

// Close 关闭底层连接
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormLogger 将 GORM 日志转发到 slog
type GormLogger struct {
	enabled            bool
	slowQueryThreshold time.Duration
}

func NewGormLogger(enabled bool, slowQueryThreshold time.Duration) *GormLogger {
	return &GormLogger{
		enabled:            enabled,
		slowQueryThreshold: slowQueryThreshold,
	}
}

func (l *GormLogger) LogMode(logger.LogLevel) logger.Interface {
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.enabled {
		pkgLogger.Info(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	pkgLogger.Warn(ctx, msg, "data", data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	pkgLogger.Error(ctx, msg, "data", data)
}

// Trace 记录 SQL 执行，错误与慢查询总是输出
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	if err == nil && !l.enabled && (l.slowQueryThreshold <= 0 || elapsed <= l.slowQueryThreshold) {
		return
	}

	sqlStr, rows := fc()
	args := []any{"duration", elapsed, "rows", rows, "sql", sqlStr}

	switch {
	case err != nil && err != gorm.ErrRecordNotFound:
		args = append(args, "error", err)
		pkgLogger.Error(ctx, "SQL execution failed", args...)
	case l.slowQueryThreshold > 0 && elapsed > l.slowQueryThreshold:
		pkgLogger.Warn(ctx, "Slow query detected", args...)
	case l.enabled:
		pkgLogger.Debug(ctx, "SQL executed", args...)
	}
}
