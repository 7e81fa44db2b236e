package tracing

import (
	"context"
	"fleet-route-optimizer/internal/platform/obs"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Init installs a global tracer provider exporting over OTLP/HTTP to
// endpoint (host:port). An empty endpoint leaves the default noop provider in
// place. The returned func flushes and stops the exporter.
func Init(ctx context.Context, endpoint, version string) (func(context.Context), error) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if endpoint == "" {
		logrus.Debug("tracing disabled: no OTLP endpoint")
		return func(context.Context) {}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logrus.WithError(err).Warn("create OTLP exporter failed, tracing disabled")
		return func(context.Context) {}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(obs.TracerName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing init: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("shutdown tracer provider failed")
		}
	}, nil
}
