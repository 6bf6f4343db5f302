// Package ctxlog carries the engine's slog.Logger through context.Context so
// the scheduler, runners and watchers log with the attributes of the work
// they are doing.
package ctxlog

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// CellKey is the attribute naming the cell a log line belongs to.
const CellKey = "cell"

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger carried by ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// With returns a context whose logger carries the given attributes.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

// WithCell scopes ctx to one cell. Everything logged under the returned
// context, including by the cell's runner, is tagged with the cell id.
func WithCell(ctx context.Context, id string) (context.Context, *slog.Logger) {
	logger := FromContext(ctx).With(CellKey, id)
	return WithLogger(ctx, logger), logger
}
