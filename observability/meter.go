package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Short(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the stream instruments. A nil *Metrics records nothing.
type Metrics struct {
	starts      metric.Int64Counter
	messages    metric.Int64Counter
	errors      metric.Int64Counter
	completions metric.Int64Counter
	active      metric.Int64UpDownCounter
	runDuration metric.Float64Histogram
}

// NewMetrics creates the stream instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	starts, err := meter.Int64Counter("stream.starts",
		metric.WithDescription("Number of stream runs started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.starts counter: %w", err)
	}

	messages, err := meter.Int64Counter("stream.messages",
		metric.WithDescription("Number of hydrated values delivered to subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.messages counter: %w", err)
	}

	errs, err := meter.Int64Counter("stream.errors",
		metric.WithDescription("Stream errors by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.errors counter: %w", err)
	}

	completions, err := meter.Int64Counter("stream.completions",
		metric.WithDescription("Finished stream runs by terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.completions counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("stream.active",
		metric.WithDescription("Number of currently running streams"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.active gauge: %w", err)
	}

	runDuration, err := meter.Float64Histogram("stream.run.duration",
		metric.WithDescription("Duration of stream runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stream.run.duration histogram: %w", err)
	}

	return &Metrics{
		starts:      starts,
		messages:    messages,
		errors:      errs,
		completions: completions,
		active:      active,
		runDuration: runDuration,
	}, nil
}

// RecordStart counts a started run and increments the active gauge.
func (m *Metrics) RecordStart(ctx context.Context, stream, mode string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrStreamName, stream),
		attribute.String(AttrStreamMode, mode),
	)
	m.starts.Add(ctx, 1, attrs)
	m.active.Add(ctx, 1, attrs)
}

// RecordMessage counts one delivered value.
func (m *Metrics) RecordMessage(ctx context.Context, stream string) {
	if m == nil {
		return
	}
	m.messages.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStreamName, stream)))
}

// RecordError counts an error by kind.
func (m *Metrics) RecordError(ctx context.Context, stream, kind string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStreamName, stream),
		attribute.String(AttrErrorKind, kind),
	))
}

// RecordEnd decrements the active gauge and records the run outcome.
func (m *Metrics) RecordEnd(ctx context.Context, stream, mode, status string, duration time.Duration) {
	if m == nil {
		return
	}
	base := []attribute.KeyValue{
		attribute.String(AttrStreamName, stream),
		attribute.String(AttrStreamMode, mode),
	}
	m.active.Add(ctx, -1, metric.WithAttributes(base...))
	m.completions.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String(AttrStatus, status))...))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(base...))
}
