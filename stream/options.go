package stream

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/transport"
)

// TransportFactory builds a fresh transport for every run.
type TransportFactory func(cfg transport.Config, opts ...transport.Option) (transport.Transport, error)

type options struct {
	log     *logger.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	factory TransportFactory
}

// Option configures a Controller.
type Option func(*options)

// WithLogger sets the controller logger. Drivers log through it too.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records run metrics through m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer used for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithTransportFactory replaces transport.New.
func WithTransportFactory(f TransportFactory) Option {
	return func(o *options) { o.factory = f }
}
