package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), &Config{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_HTTP(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	// HTTP avoids opening a gRPC connection in tests.
	cfg := &Config{
		Enabled:     true,
		ServiceName: "rowgate-test",
		Protocol:    "http",
		Insecure:    true,
		SamplerRate: 2.5,
		Environment: "dev",
		Headers:     map[string]string{"x-test": "1"},
	}

	shutdown, err := InitTracing(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}

func TestSpanScope_WithInMemoryProvider(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sr),
		sdktrace.WithResource(resource.Empty()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	scope := Tracer("trace-test").Start(context.Background(), "op")
	scope = scope.WithAttrs(attribute.String("k", "v"))
	scope.Fail(errors.New("boom"))
	scope.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)

	found := false
	for _, a := range spans[0].Attributes() {
		if a.Key == "k" && a.Value.AsString() == "v" {
			found = true
		}
	}
	require.True(t, found, "expected attribute k=v to be set on span")
}

func TestSpanScope_NilSafe(t *testing.T) {
	var s *SpanScope
	require.NotPanics(t, func() {
		s.WithAttrs(attribute.String("a", "b"))
		s.Fail(errors.New("x"))
		s.End()
	})
}

func TestConfigDefaults(t *testing.T) {
	c := &Config{}
	assert.Equal(t, ProtocolGRPC, c.protocol())
	assert.Equal(t, "localhost:4317", c.endpoint())
	assert.Equal(t, 0.0, c.samplerRate())

	c = &Config{Protocol: "http", SamplerRate: 3}
	assert.Equal(t, "localhost:4318", c.endpoint())
	assert.Equal(t, 1.0, c.samplerRate())

	c = &Config{Protocol: "carrier-pigeon", Endpoint: "collector:4317", SamplerRate: -1}
	assert.Equal(t, ProtocolGRPC, c.protocol())
	assert.Equal(t, "collector:4317", c.endpoint())
	assert.Equal(t, 0.0, c.samplerRate())
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(resource.Empty()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("trace-test").Start(context.Background(), "op")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))
	assert.Len(t, TraceID(ctx), 32)
}
