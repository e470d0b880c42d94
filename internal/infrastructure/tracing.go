package infrastructure

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDFromContext returns the OpenTelemetry trace ID on ctx, or "" when
// there is no valid span
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// SetSpanAttributes sets attrs on the current span when it is recording
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	if span, ok := spanFor(ctx); ok {
		span.SetAttributes(attrs...)
	}
}

// AddSpanEvent adds a named event to the current span when it is recording
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span, ok := spanFor(ctx); ok {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// RecordError records err on the current span and marks the span failed
func RecordError(ctx context.Context, err error) {
	if span, ok := spanFor(ctx); ok {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// spanFor returns the span on ctx and whether it is recording
func spanFor(ctx context.Context) (trace.Span, bool) {
	span := trace.SpanFromContext(ctx)
	return span, span.IsRecording()
}
