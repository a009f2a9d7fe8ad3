package app

import (
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("quizlink.app")

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(otelcodes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}
