package otel

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

func TestInitProvider_RecordsServiceSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	ctrl := initProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := otel.Tracer("service").Start(context.Background(), "Service.CreateOrder")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Service.CreateOrder", spans[0].Name())
	require.NoError(t, ctrl.Shutdown(context.Background()))
}

func TestInitProvider_TagsLedgerResource(t *testing.T) {
	viper.Set("otel.service_name", "ledger-test")
	viper.Set("otel.environment", "test")
	t.Cleanup(viper.Reset)

	recorder := tracetest.NewSpanRecorder()
	ctrl := initProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = ctrl.Shutdown(context.Background()) })

	_, span := otel.Tracer("service").Start(context.Background(), "Service.GenerateEODReport")
	span.End()

	require.Len(t, recorder.Ended(), 1)
	attrs := recorder.Ended()[0].Resource().Attributes()
	assert.Contains(t, attrs, semconv.ServiceNameKey.String("ledger-test"))
	assert.Contains(t, attrs, semconv.DeploymentEnvironmentKey.String("test"))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
