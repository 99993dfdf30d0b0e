package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/newsroom-labs/cms-service/internal/telemetry"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan marks server faults as span errors; client errors only get their code.
func endSpan(span trace.Span, err error) {
	if err != nil {
		de := apperrors.ToDomainError(err)
		span.SetAttributes(attribute.String("error.code", de.Code))
		if de.HTTPStatus >= 500 {
			span.RecordError(err)
			span.SetStatus(codes.Error, de.Code)
		}
	}
	span.End()
}
