package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("test-service")

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	metrics, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordStart(ctx, "ticker", "sse")
	metrics.RecordMessage(ctx, "ticker")
	metrics.RecordError(ctx, "ticker", "protocol")
	metrics.RecordEnd(ctx, "ticker", "sse", "completed", 100*time.Millisecond)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordStart(ctx, "s", "ndjson")
	m.RecordMessage(ctx, "s")
	m.RecordError(ctx, "s", "transport")
	m.RecordEnd(ctx, "s", "ndjson", "error", time.Second)
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	metrics.RecordStart(ctx, "ticker", "sse")
	metrics.RecordMessage(ctx, "ticker")
	metrics.RecordMessage(ctx, "ticker")
	metrics.RecordError(ctx, "ticker", "hydrate")

	sums := collectSums(t, reader)
	if sums["stream.starts"] != 1 || sums["stream.active"] != 1 {
		t.Errorf("unexpected start metrics %v", sums)
	}
	if sums["stream.messages"] != 2 || sums["stream.errors"] != 1 {
		t.Errorf("unexpected message/error metrics %v", sums)
	}

	metrics.RecordEnd(ctx, "ticker", "sse", "error", time.Second)
	sums = collectSums(t, reader)
	if sums["stream.active"] != 0 || sums["stream.completions"] != 1 {
		t.Errorf("unexpected end metrics %v", sums)
	}
}

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	recorder := tracetest.NewSpanRecorder()
	return recorder, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
}

func TestRun_SpanLifecycle(t *testing.T) {
	recorder, tp := newRecorder()
	defer tp.Shutdown(context.Background())

	run := StartRun(context.Background(), tp.Tracer("test"), nil, RunInfo{Stream: "ticker", Mode: "sse", RunID: "r-1"})
	if run.Info().RunID != "r-1" {
		t.Errorf("unexpected run info %+v", run.Info())
	}
	run.Message()
	run.Error("protocol", fmt.Errorf("bad line"))
	run.End("error", fmt.Errorf("socket closed"))
	run.End("completed", nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected exactly one ended span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != SpanStreamRun {
		t.Errorf("expected span %s, got %s", SpanStreamRun, span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status())
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrStreamName].AsString() != "ticker" || attrs[AttrRunID].AsString() != "r-1" {
		t.Errorf("missing identity attributes: %v", attrs)
	}
	if attrs[AttrStatus].AsString() != "error" {
		t.Errorf("expected terminal status error, got %v", attrs[AttrStatus])
	}
	if attrs["stream.messages"].AsInt64() != 1 {
		t.Errorf("expected 1 message, got %v", attrs["stream.messages"])
	}
	if len(span.Events()) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(span.Events()))
	}
}

func TestRun_GlobalTracer(t *testing.T) {
	recorder, tp := newRecorder()
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	run := StartRun(context.Background(), nil, nil, RunInfo{Stream: "s", Mode: "ndjson", RunID: "r"})
	if run.Duration() < 0 {
		t.Error("negative duration")
	}
	run.End("completed", nil)

	if len(recorder.Ended()) != 1 {
		t.Fatalf("expected span on the global provider, got %d", len(recorder.Ended()))
	}
	if recorder.Ended()[0].Status().Code == codes.Error {
		t.Error("completed run must not be marked failed")
	}
}

func TestSetSpanError(t *testing.T) {
	recorder, tp := newRecorder()
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), "test-error")
	SetSpanError(ctx, fmt.Errorf("test error"))
	span.End()

	if len(recorder.Ended()[0].Events()) != 1 {
		t.Error("expected error event on span")
	}

	// No recording span: must not panic
	SetSpanError(context.Background(), fmt.Errorf("no span"))
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %s, want %s", tc.rate, got, tc.want)
		}
	}
}

func shutdownCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 100*time.Millisecond)
}

func TestInitTracer(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	tp, err := InitTracer(context.Background(), DefaultTracerConfig("test-service"))
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	ctx, cancel := shutdownCtx()
	defer cancel()
	_ = tp.Shutdown(ctx)
}

func TestInitMeter(t *testing.T) {
	prev := otel.GetMeterProvider()
	defer otel.SetMeterProvider(prev)

	mp, err := InitMeter(context.Background(), DefaultMeterConfig("test-service"))
	if err != nil {
		t.Fatalf("InitMeter failed: %v", err)
	}
	ctx, cancel := shutdownCtx()
	defer cancel()
	_ = mp.Shutdown(ctx)
}
