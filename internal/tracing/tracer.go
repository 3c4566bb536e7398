package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a span named name as a child of whatever span ctx
// carries, attaching the new span to the returned context via OTel's own
// trace.ContextWithSpan so nested calls (a Select racing several channel
// ops, say) pick it up automatically through tracer.Start itself.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, opts...)
}
