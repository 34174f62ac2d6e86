// Package telemetry configures the global OpenTelemetry trace and metric
// providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/yelinaung/subnest/internal/config"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes and stops the providers.
type ShutdownFunc func(ctx context.Context) error

func noop(context.Context) error { return nil }

// Setup installs global providers for exporter. With config.ExporterNone the
// otel no-op providers stay in place.
func Setup(ctx context.Context, exporter, serviceName string) (ShutdownFunc, error) {
	if exporter == "" || exporter == config.ExporterNone {
		return noop, nil
	}

	spanExp, metricExp, err := newExporters(ctx, exporter)
	if err != nil {
		return noop, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return noop, fmt.Errorf("failed to build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Log.Info().
		Str("exporter", exporter).
		Str("service", serviceName).
		Msg("Telemetry initialized")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newExporters(ctx context.Context, exporter string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	var (
		spanExp   sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
		err       error
	)

	switch exporter {
	case config.ExporterStdout:
		if spanExp, err = stdouttrace.New(stdouttrace.WithPrettyPrint()); err != nil {
			return nil, nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		if metricExp, err = stdoutmetric.New(); err != nil {
			return nil, nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
	case config.ExporterOTLPHTTP:
		if spanExp, err = otlptracehttp.New(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp http trace exporter: %w", err)
		}
		if metricExp, err = otlpmetrichttp.New(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp http metric exporter: %w", err)
		}
	case config.ExporterOTLPGRPC:
		if spanExp, err = otlptracegrpc.New(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp grpc trace exporter: %w", err)
		}
		if metricExp, err = otlpmetricgrpc.New(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp grpc metric exporter: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unknown exporter %q", exporter)
	}

	return spanExp, metricExp, nil
}
