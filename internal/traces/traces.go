// Package traces provides OpenTelemetry distributed tracing for riskd.
package traces

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aptash/riskd"

// Init installs the global OpenTelemetry tracer provider and returns a
// shutdown function for server stop. An empty otlpEndpoint leaves the
// default no-op provider in place, so spans cost nothing when tracing is
// not configured.
func Init(ctx context.Context, otlpEndpoint string, logger *slog.Logger) (func(context.Context) error, error) {
	if otlpEndpoint == "" {
		logger.Info("tracing disabled (no OTEL_EXPORTER_OTLP_ENDPOINT set)")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("riskd"),
			semconv.ServiceVersion("0.1.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", "endpoint", otlpEndpoint)
	return tp.Shutdown, nil
}

// StartSpan starts a span named name with the given attributes, returning
// the derived context and the span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Attribute helpers keep span keys consistent across the scoring pipeline.

func Sender(addr string) attribute.KeyValue {
	return attribute.String("tx.sender", addr)
}

func Recipient(addr string) attribute.KeyValue {
	return attribute.String("tx.recipient", addr)
}

func Amount(amount float64) attribute.KeyValue {
	return attribute.Float64("tx.amount", amount)
}

func RiskScore(score float64) attribute.KeyValue {
	return attribute.Float64("risk.score", score)
}

func Model(model string) attribute.KeyValue {
	return attribute.String("risk.model", model)
}

func AssessmentID(id string) attribute.KeyValue {
	return attribute.String("assessment.id", id)
}
