package utils

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InitTracer initializes OpenTelemetry tracing with an OTLP gRPC exporter.
// An empty endpoint leaves the global no-op provider in place.
func InitTracer(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(), error) {
	if endpoint == "" {
		Info("tracing disabled, no OTLP endpoint configured")
		return func() {}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	instance, _ := os.Hostname()
	if instance == "" {
		instance = serviceName
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceInstanceIDKey.String(instance),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	Info("tracing enabled", "endpoint", endpoint)

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			Error("failed to shutdown tracer provider", "error", err.Error())
		}
	}, nil
}

// GetTracer returns a tracer with the given name.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// TraceIDFromContext extracts trace ID from context as string.
// Returns an empty string when the context carries no sampled span.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
