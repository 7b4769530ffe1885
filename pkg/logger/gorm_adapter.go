package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// DefaultSlowThreshold 未配置 database.slow_threshold 时使用
const DefaultSlowThreshold = 200 * time.Millisecond

// GormLogger 将 gorm 的 SQL 日志写入 zap
// 「记录不存在」由仓储转换为领域错误，这里不记录
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	base          *zap.Logger
}

func NewGormLogger(level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &GormLogger{level: level, slowThreshold: slowThreshold}
}

// WithLogger 固定输出目标；默认在每次写日志时取全局 logger
func (l *GormLogger) WithLogger(base *zap.Logger) *GormLogger {
	clone := *l
	clone.base = base
	return &clone
}

// ParseGormLevel 将配置中的 database.log_level 转为 gorm 日志级别，默认 warn
func ParseGormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) logger(ctx context.Context) *zap.Logger {
	return Ctx(ctx, l.base).With(zap.String("source", utils.FileWithLineNum()))
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.logger(ctx).Error("SQL failed", zap.String("sql", sql), zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed), zap.Error(err))
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger(ctx).Warn("Slow SQL", zap.String("sql", sql), zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed), zap.Duration("threshold", l.slowThreshold))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger(ctx).Info("SQL", zap.String("sql", sql), zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed))
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
