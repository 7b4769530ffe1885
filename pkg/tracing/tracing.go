/*
Package tracing 提供 OpenTelemetry tracer 初始化与 span 辅助函数。

未启用时使用全局 noop provider，StartSpan 仍可安全调用。
*/
package tracing

import (
	"context"
	"fmt"

	"orderflow/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "orderflow"

// ShutdownFunc 刷新并关闭 tracer provider
type ShutdownFunc func(ctx context.Context) error

// Init 按配置安装全局 tracer provider
func Init(ctx context.Context, cfg config.TracingConfig, env string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	client := otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(cfg.ExporterURL),
		otlptracehttp.WithInsecure(),
	)
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("init otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(env),
		)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartSpan 以全局 provider 开启 span
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End 结束 span，err 非空时记录错误并标记状态
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
