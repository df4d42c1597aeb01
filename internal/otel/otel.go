package otel

import (
	"context"

	"github.com/corray333/backend-labs/ledger/internal/jaeger"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs a tracer provider exporting to Jaeger and the W3C propagator.
// otel.sample_ratio below 1 samples new traces; child spans follow their parent's decision.
func MustInitOtel() *OtelController {
	jaegerExporter := jaeger.MustNewJaeger(viper.GetString("otel.jaeger_endpoint"))

	return initProvider(
		sdktrace.WithBatcher(jaegerExporter),
		sdktrace.WithSampler(sampler(viper.GetFloat64("otel.sample_ratio"))),
	)
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.AlwaysSample()
	}

	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func ledgerResource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(viper.GetString("otel.service_name")),
		semconv.DeploymentEnvironmentKey.String(viper.GetString("otel.environment")),
	)
}

func initProvider(opts ...sdktrace.TracerProviderOption) *OtelController {
	tp := sdktrace.NewTracerProvider(append(opts, sdktrace.WithResource(ledgerResource()))...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OtelController{traceProvider: tp}
}

// Shutdown flushes buffered spans.
func (o *OtelController) Shutdown(ctx context.Context) error {
	return o.traceProvider.Shutdown(ctx)
}
