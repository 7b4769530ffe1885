package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"orderflow/config"
	"orderflow/infrastructure/persistence"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// swapGlobal 替换全局 logger，测试结束后恢复
func swapGlobal(t *testing.T, l *zap.Logger) {
	t.Helper()
	original := log
	log = l
	t.Cleanup(func() { log = original })
}

func TestUninitializedLoggerIsSilent(t *testing.T) {
	swapGlobal(t, nil)

	Info("order placed")
	Error("notification failed")
	if Get() == nil || WithRequestID("req-1") == nil || Ctx(context.Background(), nil) == nil {
		t.Fatal("helpers must return a usable logger before Init")
	}
	if err := Sync(); err != nil {
		t.Errorf("Sync() before Init = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"fatal": zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
		"loud":  zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCtxAddsRequestAndTraceIDs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	traceID := trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := persistence.ContextWithRequestID(context.Background(), "req-42")
	ctx = trace.ContextWithSpanContext(ctx, spanCtx)

	Ctx(ctx, base).Info("Order placed", zap.Int64("order_id", 42))
	Ctx(context.Background(), base).Info("Worker started")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" || fields["trace_id"] != traceID.String() || fields["order_id"] != int64(42) {
		t.Errorf("correlated entry fields = %v", fields)
	}
	if len(entries[1].ContextMap()) != 0 {
		t.Errorf("plain context must not add fields: %v", entries[1].ContextMap())
	}
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	swapGlobal(t, zap.New(core))

	Ctx(persistence.ContextWithRequestID(context.Background(), "req-9"), nil).Info("Order statuses reordered")
	if logs.FilterField(zap.String("request_id", "req-9")).Len() != 1 {
		t.Errorf("global logger must receive the correlated entry")
	}
}

func TestInitWritesRotatedFile(t *testing.T) {
	swapGlobal(t, nil)
	path := filepath.Join(t.TempDir(), "logs", "orderflow.log")

	err := InitForApp(&config.Config{
		App: config.AppConfig{Name: "orderflow", Version: "1.0.0", Env: "production"},
		Log: config.LogConfig{Level: "info", Output: "file", FilePath: path, MaxSizeMB: 1},
	})
	if err != nil {
		t.Fatalf("InitForApp() error = %v", err)
	}
	Debug("filtered at info")
	Info("Order placed", zap.String("order_number", "VR-15"))
	if err := Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"msg":"Order placed"`, `"order_number":"VR-15"`, `"service":"orderflow"`, `"env":"production"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log file missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "filtered at info") {
		t.Errorf("debug entry written at info level")
	}
}

func TestNewEncoderSelection(t *testing.T) {
	tests := []struct {
		format, env string
		level       zapcore.Level
		wantJSON    bool
	}{
		{"json", "development", zapcore.DebugLevel, true},
		{"console", "production", zapcore.InfoLevel, false},
		{"", "production", zapcore.InfoLevel, true},
		{"", "development", zapcore.InfoLevel, false},
		{"", "production", zapcore.DebugLevel, false},
	}
	for _, tt := range tests {
		enc := newEncoder(tt.format, tt.env, tt.level)
		buf, err := enc.EncodeEntry(zapcore.Entry{Message: "Order placed"}, nil)
		if err != nil {
			t.Fatalf("EncodeEntry: %v", err)
		}
		isJSON := strings.HasPrefix(buf.String(), "{")
		if isJSON != tt.wantJSON {
			t.Errorf("format=%q env=%q level=%v: json = %v, want %v", tt.format, tt.env, tt.level, isJSON, tt.wantJSON)
		}
	}
}
