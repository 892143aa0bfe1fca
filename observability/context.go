package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunInfo identifies one stream run.
type RunInfo struct {
	Stream string
	Mode   string
	RunID  string
}

// Run tracks the span and metrics of one stream run. Its methods are not
// safe for concurrent use; the controller calls them from its serial executor.
type Run struct {
	info      RunInfo
	ctx       context.Context
	span      trace.Span
	metrics   *Metrics
	startTime time.Time
	messages  int64
	ended     bool
}

// StartRun opens a "stream.run" span on tracer and records the start metric.
// A nil tracer uses the global provider; nil metrics are skipped.
func StartRun(ctx context.Context, tracer trace.Tracer, metrics *Metrics, info RunInfo) *Run {
	if tracer == nil {
		tracer = Tracer(DefaultTracerName)
	}
	ctx, span := tracer.Start(ctx, SpanStreamRun, trace.WithAttributes(
		attribute.String(AttrStreamName, info.Stream),
		attribute.String(AttrStreamMode, info.Mode),
		attribute.String(AttrRunID, info.RunID),
	))
	metrics.RecordStart(ctx, info.Stream, info.Mode)
	return &Run{
		info:      info,
		ctx:       ctx,
		span:      span,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// Context returns the run context carrying the span.
func (r *Run) Context() context.Context {
	return r.ctx
}

// Info returns the run identity.
func (r *Run) Info() RunInfo {
	return r.info
}

// Message records one delivered value.
func (r *Run) Message() {
	r.messages++
	r.metrics.RecordMessage(r.ctx, r.info.Stream)
}

// Error records a non-terminal or terminal error of the given kind.
func (r *Run) Error(kind string, err error) {
	r.metrics.RecordError(r.ctx, r.info.Stream, kind)
	if err != nil {
		r.span.RecordError(err, trace.WithAttributes(attribute.String(AttrErrorKind, kind)))
	}
}

// End closes the span with the terminal status. err marks the span failed.
// Calls after the first are ignored.
func (r *Run) End(status string, err error) {
	if r.ended {
		return
	}
	r.ended = true
	duration := time.Since(r.startTime)

	if err != nil {
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
		attribute.Int64("stream.messages", r.messages),
	)
	r.span.End()

	r.metrics.RecordEnd(r.ctx, r.info.Stream, r.info.Mode, status, duration)
}

// Duration returns the elapsed time since the run started.
func (r *Run) Duration() time.Duration {
	return time.Since(r.startTime)
}
