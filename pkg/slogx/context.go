package slogx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithContext stores a request-scoped logger on the context. Handlers and
// services retrieve it with FromContext so per-request attributes (req_id,
// method, path) follow the call chain.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached by WithContext, or slog.Default
// when the context never passed through the HTTP middleware.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
