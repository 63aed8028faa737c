// Package tracer provides distributed tracing on top of OpenTelemetry.
//
// The metadata Manager opens a span around every reconciliation, the updaters open
// child spans for each backend push, and the kafka publisher carries the trace context
// in message headers so followers continue the same trace.
//
// Basic usage:
//
//	client, err := tracer.NewClient(tracer.Config{ServiceName: "portmeta"})
//	if err != nil {
//	    return err
//	}
//	defer client.Shutdown(context.Background())
//
//	ctx, span := client.StartSpan(ctx, "registry.push")
//	defer span.End()
//	if err := push(ctx); err != nil {
//	    span.RecordError(err)
//	}
//
// All methods on TracerClient and Span are safe for concurrent use.
package tracer
