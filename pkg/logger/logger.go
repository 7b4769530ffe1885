/*
Package logger 提供项目统一日志能力。

进程级 zap logger 由 Init/InitForApp 初始化；未初始化时所有函数静默。
Ctx 为业务日志附加 request_id 与 trace_id，HTTP 访问日志、SQL 日志与
订单生命周期日志据此关联到同一请求。
*/
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"orderflow/config"
	"orderflow/infrastructure/persistence"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.Logger

func Init(cfg *config.LogConfig, env string) error {
	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	level := parseLevel(cfg.Level)
	core := zapcore.NewCore(newEncoder(cfg.Format, env, level), zapcore.AddSync(sink), level)
	log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// InitForApp 初始化日志并附带服务标识字段
func InitForApp(cfg *config.Config) error {
	if err := Init(&cfg.Log, cfg.App.Env); err != nil {
		return err
	}
	log = log.With(
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)
	return nil
}

// newEncoder 显式 format 优先；未指定时开发环境与 debug 级别用 console
func newEncoder(format, env string, level zapcore.Level) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	switch format {
	case "json":
		return zapcore.NewJSONEncoder(ec)
	case "console":
		return zapcore.NewConsoleEncoder(ec)
	}
	if env == "dev" || env == "development" || level == zapcore.DebugLevel {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func newSink(cfg *config.LogConfig) (io.Writer, error) {
	if cfg.Output != "file" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    orDefault(cfg.MaxSizeMB, 10),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		Compress:   cfg.Compress,
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

// Get 未初始化时返回 Nop
func Get() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Sync 忽略标准输出不支持 fsync 的错误
func Sync() error {
	if log == nil {
		return nil
	}
	if err := log.Sync(); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "inappropriate ioctl for device") ||
			strings.Contains(msg, "invalid argument") ||
			strings.Contains(msg, "bad file descriptor") {
			return nil
		}
		return err
	}
	return nil
}

func WithRequestID(requestID string) *zap.Logger {
	return Get().With(zap.String("request_id", requestID))
}

// ContextFields ctx 中的 request_id 与当前 span 的 trace_id
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if requestID := persistence.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return fields
}

// Ctx 在 base 上附加 ctx 的关联字段；base 为 nil 时使用全局 logger
func Ctx(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = Get()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

func Debug(msg string, fields ...zap.Field) { Get().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { Get().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { Get().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { Get().Error(msg, fields...) }

func Fatal(msg string, fields ...zap.Field) {
	if log != nil {
		log.Fatal(msg, fields...)
	}
}
