package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func enabledConfig(rate float64) Config {
	// Non-routable endpoint: exports fail asynchronously, init still works.
	return Config{
		ServiceName:    "account",
		ServiceVersion: "0.1.0",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     rate,
		Enabled:        true,
	}
}

func TestInitTracer_Disabled(t *testing.T) {
	cfg := DefaultConfig("account")
	cfg.Enabled = false

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_InstallsGlobalProvider(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), enabledConfig(1.0))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	defer shutdown(context.Background()) //nolint:errcheck

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "global provider should be the SDK provider")
}

func TestInitTracer_SampleRates(t *testing.T) {
	for _, rate := range []float64{0.0, 0.25, 1.0} {
		shutdown, err := InitTracer(context.Background(), enabledConfig(rate))
		require.NoError(t, err, "rate %v", rate)
		_ = shutdown(context.Background())
	}
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample(), samplerFor(1.0))
	assert.Equal(t, sdktrace.NeverSample(), samplerFor(0.0))
	assert.NotNil(t, samplerFor(0.5))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("account")

	assert.Equal(t, "account", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
}

func TestTracer_StartsSpans(t *testing.T) {
	tracer := Tracer("account")
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "user.register")
	span.End()
}
