// Package logger 提供基于 slog 的统一日志封装，支持 request_id 注入与日志切割
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger *slog.Logger

type ctxKey struct{}

// Config 日志配置
type Config struct {
	// debug, info, warn, error
	Level string
	// json 或 text
	Format string
	// stdout, file, both
	Output     string
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	WithCaller bool
}

// New 按配置构造 logger，不修改全局实例
func New(cfg Config) (*slog.Logger, error) {
	var output io.Writer

	fileWriter := func() (io.Writer, error) {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}
		return &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}, nil
	}

	switch cfg.Output {
	case "file":
		w, err := fileWriter()
		if err != nil {
			return nil, err
		}
		output = w
	case "both":
		w, err := fileWriter()
		if err != nil {
			return nil, err
		}
		output = io.MultiWriter(os.Stdout, w)
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler), nil
}

// Init 初始化全局日志实例
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalLogger = l
	slog.SetDefault(globalLogger)
	return nil
}

// Get 获取全局日志实例
func Get() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// ContextWithRequestID 将 request_id 写入 context
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID 读取 context 中的 request_id
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithContext 返回带 request_id 字段的 logger
func WithContext(ctx context.Context) *slog.Logger {
	l := Get()
	if id := RequestID(ctx); id != "" {
		return l.With(slog.String("request_id", id))
	}
	return l
}

func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).DebugContext(ctx, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).InfoContext(ctx, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).WarnContext(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).ErrorContext(ctx, msg, args...)
}

// LogDuration 记录操作耗时，配合 defer 使用
func LogDuration(ctx context.Context, msg string, args ...any) func() {
	start := time.Now()
	return func() {
		args = append(args, slog.Duration("duration", time.Since(start)))
		Info(ctx, msg, args...)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
