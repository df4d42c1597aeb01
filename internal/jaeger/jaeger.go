package jaeger

import (
	"go.opentelemetry.io/otel/exporters/jaeger"
)

// MustNewJaeger creates an exporter sending spans to the collector at endpoint.
func MustNewJaeger(endpoint string) *jaeger.Exporter {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(endpoint),
	))
	if err != nil {
		panic(err)
	}

	return exp
}
