package telemetry

import (
	"context"
	"time"
)

type (
	// NoopLogger discards all log messages.
	NoopLogger struct{}
	// NoopMetrics discards all metrics.
	NoopMetrics struct{}
	// NoopTracer creates no-op spans.
	NoopTracer struct{}

	noopSpan struct{}
)

func (NoopLogger) Debug(context.Context, string, ...any) {}
func (NoopLogger) Info(context.Context, string, ...any)  {}
func (NoopLogger) Warn(context.Context, string, ...any)  {}
func (NoopLogger) Error(context.Context, string, ...any) {}

func (NoopMetrics) IncCounter(string, float64, ...string)           {}
func (NoopMetrics) RecordTimer(string, time.Duration, ...string)    {}
func (NoopMetrics) RecordGauge(string, float64, ...string)          {}

func (NoopTracer) Start(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopSpan) End()                     {}
func (noopSpan) AddEvent(string, ...any)  {}
func (noopSpan) RecordError(error)        {}
