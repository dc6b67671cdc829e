package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, p.tp)
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProviderInvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	assert.EqualError(t, err, "unsupported exporter type: zipkin (supported: grpc, http)")
}

func TestNewProviderHTTP(t *testing.T) {
	// the exporter connects lazily, so no collector is needed
	p, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "hlsfilter",
		ExporterType: "http",
		Endpoint:     "127.0.0.1:4318",
		SamplingRate: 0,
	})
	require.NoError(t, err)
	require.NotNil(t, p.tp)
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	for rate, want := range map[float64]string{
		1:   "AlwaysOnSampler",
		2:   "AlwaysOnSampler",
		0:   "AlwaysOffSampler",
		-1:  "AlwaysOffSampler",
		0.5: "TraceIDRatioBased{0.5}",
	} {
		assert.Equal(t, want, Sampler(rate).Description(), "rate %v", rate)
	}
}

func TestAnnotate(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "POST /media")
	Annotate(ctx, TransformAttributes("media", 20, 4)...)
	Annotate(ctx, attribute.Int64(MediaSequenceKey, 320035372), Runtime(14400*time.Millisecond))
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "media", got[PlaylistKindKey].AsString())
	assert.EqualValues(t, 20, got[PlaylistInputKey].AsInt64())
	assert.EqualValues(t, 4, got[PlaylistOutputKey].AsInt64())
	assert.EqualValues(t, 320035372, got[MediaSequenceKey].AsInt64())
	assert.InDelta(t, 14.4, got[RuntimeKey].AsFloat64(), 1e-9)

	// no span in context
	Annotate(context.Background(), attribute.Bool(CacheHitKey, true))
}
