package tracing

import (
	"context"
	"errors"
	"testing"

	"orderflow/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestStartSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(original)

	_, span := StartSpan(context.Background(), "order.bulk_status", attribute.Int("order.count", 3))
	End(span, errors.New("boom"))

	_, ok := StartSpan(context.Background(), "order.get")
	End(ok, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error || len(spans[0].Events()) == 0 {
		t.Errorf("error not recorded on span: %+v", spans[0].Status())
	}
	if spans[1].Status().Code == codes.Error {
		t.Errorf("successful span marked as error")
	}
}
