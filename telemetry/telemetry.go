// Package telemetry defines the logging/metrics/tracing seam the engine
// holds and hands to each agent. Only the Logger is called: on a failed
// bus poll, for each inbound bus event, and for each Cond task branch; no
// Metrics or Tracer call is made. None of it is required for correctness: telemetry is
// observational only (spec §4.9 / Non-goals: no real-time scheduling
// guarantees).
package telemetry

import (
	"context"
	"time"
)

type (
	// Logger emits structured log lines keyed by alternating (key, value)
	// pairs, mirroring the teacher's runtime/agent/telemetry.Logger shape.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges, each optionally
	// dimensioned by alternating (tag, value) string pairs.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, d time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer starts named spans. The engine does not call it.
	Tracer interface {
		Start(ctx context.Context, name string) (context.Context, Span)
	}

	// Span is the handle returned by Tracer.Start.
	Span interface {
		End()
		AddEvent(name string, keyvals ...any)
		RecordError(err error)
	}

	// Telemetry bundles the three seams the engine holds and passes to
	// each agent, matching §4.1's `Telemetry()` accessor.
	Telemetry struct {
		Logger  Logger
		Metrics Metrics
		Tracer  Tracer
	}
)

// Noop returns a Telemetry whose three seams discard everything, the
// default when an engine is constructed without an explicit backend.
func Noop() Telemetry {
	return Telemetry{Logger: NoopLogger{}, Metrics: NoopMetrics{}, Tracer: NoopTracer{}}
}
