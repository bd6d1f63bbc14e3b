// Package logger carries request-scoped logging helpers: trace correlation,
// header masking and the gin access-log middleware.
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	obscontext "github.com/caiohomem/assistente-sub001/internal/observability/context"
)

// FromContext returns the global logger enriched with the trace, span and
// request identifiers found in the context.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}

	fields := make([]zap.Field, 0, 3)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
