package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	listener  func(Event)
	cacheSize int
	tracer    trace.Tracer
}

// WithLogger sets the logger used by the engine and everything it drives.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithListener registers fn to receive every event synchronously on the
// scheduling loop. fn must not call back into the engine.
func WithListener(fn func(Event)) Option {
	return func(o *options) { o.listener = fn }
}

// WithAnalysisCacheSize bounds the number of cached cell analyses.
func WithAnalysisCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithTracer overrides the tracer used for cell runs.
func WithTracer(tr trace.Tracer) Option {
	return func(o *options) { o.tracer = tr }
}
