package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"orderflow/config"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Config struct {
	Enabled            bool
	MaxAttempts        int
	InitialDelay       time.Duration
	MaxDelay           time.Duration
	BackoffFactor      float64
	JitterEnabled      bool
	RetryOnDeadlock    bool
	RetryOnLockTimeout bool
	RetryPredicate     func(error) bool
}

var DefaultConfig = Config{
	Enabled:            true,
	MaxAttempts:        3,
	InitialDelay:       100 * time.Millisecond,
	MaxDelay:           2 * time.Second,
	BackoffFactor:      2.0,
	JitterEnabled:      true,
	RetryOnDeadlock:    true,
	RetryOnLockTimeout: true,
}

// Postgres SQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// MySQL error numbers
const (
	mysqlDeadlock        = 1213
	mysqlLockWaitTimeout = 1205
)

func FromAppConfig(appConfig *config.Config) Config {
	retryConfig := appConfig.Database.Retry

	return Config{
		Enabled:            retryConfig.Enabled,
		MaxAttempts:        retryConfig.MaxAttempts,
		InitialDelay:       retryConfig.InitialDelay,
		MaxDelay:           retryConfig.MaxDelay,
		BackoffFactor:      retryConfig.BackoffFactor,
		JitterEnabled:      retryConfig.JitterEnabled,
		RetryOnDeadlock:    retryConfig.RetryOnDeadlock,
		RetryOnLockTimeout: retryConfig.RetryOnLockTimeout,
	}
}

func ExponentialBackoffWithJitter(attempt int, config Config) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt-1))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.JitterEnabled {
		jitterFactor := 0.8 + rand.Float64()*0.4
		delay = delay * jitterFactor
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// IsRetryableError 只有事务级冲突才重试；业务错误与约束冲突直接返回
func IsRetryableError(err error, config Config) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if config.RetryPredicate != nil && config.RetryPredicate(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDeadlockDetected, pgSerializationFailure:
			return config.RetryOnDeadlock
		case pgLockNotAvailable:
			return config.RetryOnLockTimeout
		}
		return false
	}

	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlDeadlock:
			return config.RetryOnDeadlock
		case mysqlLockWaitTimeout:
			return config.RetryOnLockTimeout
		}
		return false
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "deadlock") || strings.Contains(errStr, "lock wait timeout") {
		if config.RetryOnDeadlock {
			return true
		}
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) ||
		(strings.Contains(errStr, "connection") && strings.Contains(errStr, "lost")) {
		return true
	}

	return false
}

func ExecuteWithRetry(ctx context.Context, config Config, fn func(ctx context.Context) error) error {
	if !config.Enabled || config.MaxAttempts <= 1 {
		return fn(ctx)
	}

	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsRetryableError(err, config) || attempt == config.MaxAttempts {
			break
		}

		delay := ExponentialBackoffWithJitter(attempt, config)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return lastErr
}
