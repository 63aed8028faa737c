package tracer

import (
	"context"
)

// Tracer creates spans and propagates trace context across process boundaries.
//
// This interface is implemented by the concrete *TracerClient type.
type Tracer interface {
	// StartSpan creates a span named name, attached to the span in ctx if there is one.
	// Always call span.End() when the operation completes.
	StartSpan(ctx context.Context, name string) (context.Context, Span)

	// GetCarrier extracts the trace context of ctx as a map of headers for outbound messages.
	GetCarrier(ctx context.Context) map[string]string

	// SetCarrierOnContext injects trace context received in headers into ctx.
	SetCarrierOnContext(ctx context.Context, carrier map[string]string) context.Context
}

// Span is one traced operation.
type Span interface {
	// End completes the span.
	//
	// Example:
	//   ctx, span := tracer.StartSpan(ctx, "metadata.process_pending_updates")
	//   defer span.End()
	End()

	// SetAttributes adds key-value attributes to the span.
	//
	// Example:
	//   span.SetAttributes(map[string]interface{}{
	//     "metadata.types":  2,
	//     "metadata.fields": 5,
	//   })
	SetAttributes(attrs map[string]interface{})

	// RecordError records err on the span and marks it as failed.
	RecordError(err error)
}
