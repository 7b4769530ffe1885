package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"orderflow/infrastructure/persistence"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(level, 50*time.Millisecond).WithLogger(zap.New(core)), logs
}

func messages(logs *observer.ObservedLogs) map[string]zapcore.Level {
	got := make(map[string]zapcore.Level)
	for _, e := range logs.All() {
		got[e.Message] = e.Level
	}
	return got
}

func TestGormLoggerLevels(t *testing.T) {
	insertOrder := func() (string, int64) { return `INSERT INTO "orders" ("placed_at") VALUES ($1)`, 1 }
	failure := errors.New("relation \"orders\" does not exist")

	tests := []struct {
		name  string
		level gormlogger.LogLevel
		want  []string
		skip  []string
	}{
		{"silent", gormlogger.Silent, nil, []string{"SQL", "Slow SQL", "SQL failed", "status sync"}},
		{"error", gormlogger.Error, []string{"SQL failed"}, []string{"SQL", "Slow SQL", "status sync"}},
		{"warn", gormlogger.Warn, []string{"SQL failed", "Slow SQL"}, []string{"SQL", "status sync"}},
		{"info", gormlogger.Info, []string{"SQL failed", "Slow SQL", "SQL", "status sync"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, logs := observedGormLogger(tt.level)
			ctx := context.Background()

			l.Trace(ctx, time.Now(), insertOrder, nil)
			l.Trace(ctx, time.Now().Add(-time.Second), insertOrder, nil)
			l.Trace(ctx, time.Now(), insertOrder, failure)
			l.Info(ctx, "status sync %d", 3)

			got := messages(logs)
			for _, msg := range tt.want {
				if _, ok := got[msg]; !ok {
					t.Errorf("%q not logged at %s", msg, tt.name)
				}
			}
			for _, msg := range tt.skip {
				if _, ok := got[msg]; ok {
					t.Errorf("%q must be filtered at %s", msg, tt.name)
				}
			}
		})
	}
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	l, logs := observedGormLogger(gormlogger.Info)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "orders" WHERE id = 404`, 0
	}, gormlogger.ErrRecordNotFound)

	got := messages(logs)
	if _, ok := got["SQL failed"]; ok {
		t.Errorf("missing order lookups must not be logged as failures")
	}
}

func TestGormLoggerCorrelatesRequest(t *testing.T) {
	l, logs := observedGormLogger(gormlogger.Warn)
	ctx := persistence.ContextWithRequestID(context.Background(), "req-checkout-7")

	l.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
		return `UPDATE "orders" SET "order_number"='VR-7' WHERE id = 7`, 1
	}, nil)

	entries := logs.FilterMessage("Slow SQL").All()
	if len(entries) != 1 {
		t.Fatalf("slow SQL entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-checkout-7" {
		t.Errorf("request_id = %v", fields["request_id"])
	}
	if fields["sql"] != `UPDATE "orders" SET "order_number"='VR-7' WHERE id = 7` || fields["rows"] != int64(1) {
		t.Errorf("statement fields = %v", fields)
	}
	if _, ok := fields["source"]; !ok {
		t.Errorf("source location missing")
	}
}

func TestGormLoggerLogModeKeepsThreshold(t *testing.T) {
	l, logs := observedGormLogger(gormlogger.Silent)
	loud := l.LogMode(gormlogger.Warn)

	loud.Trace(context.Background(), time.Now().Add(-20*time.Millisecond), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	if logs.Len() != 0 {
		t.Errorf("20ms is under the 50ms threshold, got %d entries", logs.Len())
	}
	if l.level != gormlogger.Silent {
		t.Errorf("LogMode must not mutate the receiver")
	}
}

func TestParseGormLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"silent": gormlogger.Silent,
		"error":  gormlogger.Error,
		"warn":   gormlogger.Warn,
		"info":   gormlogger.Info,
		"":       gormlogger.Warn,
		"bogus":  gormlogger.Warn,
	}
	for in, want := range cases {
		if got := ParseGormLevel(in); got != want {
			t.Errorf("ParseGormLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewGormLoggerDefaultsThreshold(t *testing.T) {
	if got := NewGormLogger(gormlogger.Warn, 0).slowThreshold; got != DefaultSlowThreshold {
		t.Errorf("threshold = %v, want %v", got, DefaultSlowThreshold)
	}
}
