package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	original := otel.GetTracerProvider()

	tp, err := NewTracerProvider(context.Background(), Config{Collector: Collector{ServiceName: "supplier-portal"}}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.Equal(t, original, otel.GetTracerProvider())
	assert.NoError(t, tp.Shutdown(context.Background()))

	tp.EnableSpanProfiles()
	assert.False(t, tp.spanProfiles.Load())
}

func TestNewTracerProvider_NilLogger(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.NotPanics(t, tp.EnableSpanProfiles)
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	// the gRPC exporter connects lazily, so no collector is needed
	tp, err := NewTracerProvider(context.Background(), Config{
		Collector:     Collector{Endpoint: "localhost:4317", Insecure: true, ServiceName: "supplier-portal-test"},
		Enabled:       true,
		SamplingRatio: 1.0,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(context.Background(), "noop-check")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	tp.EnableSpanProfiles()
	tp.EnableSpanProfiles()
	assert.True(t, tp.spanProfiles.Load())
	assert.NotEqual(t, tp.provider, otel.GetTracerProvider())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tp.Shutdown(ctx)
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{"always", 1.0, sdktrace.AlwaysSample().Description()},
		{"above one", 2.5, sdktrace.AlwaysSample().Description()},
		{"never", 0, sdktrace.NeverSample().Description()},
		{"negative", -1, sdktrace.NeverSample().Description()},
		{"ratio", 0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, samplerFor(tt.ratio).Description())
		})
	}
}

func TestCollectorResource(t *testing.T) {
	res, err := Collector{ServiceName: "supplier-portal-test"}.resource(context.Background())
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "supplier-portal-test", attrs["service.name"])
	assert.Equal(t, ServiceVersion, attrs["service.version"])
	assert.NotEmpty(t, attrs["host.name"])
}
