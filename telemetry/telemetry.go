// Package telemetry centralizes the host's OpenTelemetry wiring. Spans
// use the global TracerProvider; configure it via otel.SetTracerProvider
// (or environment variables such as OTEL_EXPORTER_OTLP_ENDPOINT) before
// serving traffic. Structured logging goes through goa.design/clue/log
// and travels on the request context.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/agentd-io/agentd"

// Tracer returns the host tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Fail records err on the span and marks its status as error. Every
// component that creates a span calls this before re-raising; exceptions
// are never swallowed silently.
func Fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// OK marks the span status as successful.
func OK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
