package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func newRecordedClient(t *testing.T) (*TracerClient, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	client := NewClientWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { _ = client.Shutdown(context.Background()) })
	return client, rec
}

func TestNewClient_NoExport(t *testing.T) {
	client, err := NewClient(Config{ServiceName: "portmeta", AppEnv: "test"})
	require.NoError(t, err)
	assert.NoError(t, client.Shutdown(context.Background()))
}

func TestNewClient_WithExportConfigured(t *testing.T) {
	client, err := NewClient(Config{
		ServiceName:  "portmeta",
		EnableExport: true,
		Endpoint:     "127.0.0.1:1",
		Insecure:     true,
		SampleRatio:  0.5,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = client.Shutdown(ctx)
}

func TestShutdown_Nil(t *testing.T) {
	var client *TracerClient
	assert.NoError(t, client.Shutdown(context.Background()))
}

func TestStartSpan_ChildInheritsParent(t *testing.T) {
	client, rec := newRecordedClient(t)

	parentCtx, parent := client.StartSpan(context.Background(), "parent")
	childCtx, child := client.StartSpan(parentCtx, "child")
	child.End()
	parent.End()

	assert.True(t, trace.SpanFromContext(childCtx).SpanContext().IsValid())
	assert.Equal(t,
		trace.SpanFromContext(parentCtx).SpanContext().TraceID(),
		trace.SpanFromContext(childCtx).SpanContext().TraceID())

	ended := rec.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "child", ended[0].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
}

func TestSpan_SetAttributes(t *testing.T) {
	client, rec := newRecordedClient(t)

	_, span := client.StartSpan(context.Background(), "op")
	span.SetAttributes(nil)
	span.SetAttributes(map[string]interface{}{
		"s":     "v",
		"i":     2,
		"i32":   int32(3),
		"i64":   int64(4),
		"f":     1.5,
		"b":     true,
		"other": []string{"x"},
	})
	span.End()

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range rec.Ended()[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "v", attrs["s"].AsString())
	assert.Equal(t, int64(2), attrs["i"].AsInt64())
	assert.Equal(t, int64(3), attrs["i32"].AsInt64())
	assert.Equal(t, int64(4), attrs["i64"].AsInt64())
	assert.Equal(t, 1.5, attrs["f"].AsFloat64())
	assert.True(t, attrs["b"].AsBool())
	assert.Equal(t, "[x]", attrs["other"].AsString())
}

func TestSpan_RecordError(t *testing.T) {
	client, rec := newRecordedClient(t)

	_, span := client.StartSpan(context.Background(), "op")
	span.RecordError(nil)
	span.RecordError(errors.New("push failed"))
	span.End()

	ended := rec.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "push failed", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
}

func TestCarrierRoundTrip(t *testing.T) {
	client, _ := newRecordedClient(t)

	ctx, span := client.StartSpan(context.Background(), "publish")
	defer span.End()

	carrier := client.GetCarrier(ctx)
	require.Contains(t, carrier, "traceparent")

	remote := client.SetCarrierOnContext(context.Background(), carrier)
	assert.Equal(t,
		trace.SpanFromContext(ctx).SpanContext().TraceID(),
		trace.SpanContextFromContext(remote).TraceID())
}

func TestFXModule_ProvidesTracer(t *testing.T) {
	var tr Tracer
	app := fxtest.New(t,
		FXModule,
		fx.Provide(func() Config { return Config{ServiceName: "portmeta"} }),
		fx.Populate(&tr),
	)
	app.RequireStart()
	require.NotNil(t, tr)
	app.RequireStop()
}
