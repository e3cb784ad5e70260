package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spylab/llm-ctf/internal/apperrors"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation is the per-service bundle used by Observe.
type Instrumentation struct {
	Service string
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics Metrics
}

// NewInstrumentation scopes o to a single service name.
func (o *Observability) NewInstrumentation(service string) Instrumentation {
	return Instrumentation{
		Service: service,
		Logger:  o.Logger.With(attr.String("module", service)),
		Tracer:  o.Tracer,
		Metrics: o.Metrics,
	}
}

// Observe wraps a service operation with a span, operation metrics, logging
// and panic recovery. Errors that carry a client-visible kind are logged at
// warn level and do not mark the span as failed.
func Observe[T any](
	ctx context.Context,
	in Instrumentation,
	operation string,
	attrs []attribute.KeyValue,
	fn func(ctx context.Context) (T, error),
) (result T, err error) {
	ctx, span := in.Tracer.Start(ctx, in.Service+"."+operation, trace.WithAttributes(
		append([]attribute.KeyValue{attribute.String("operation", operation)}, attrs...)...,
	))
	defer span.End()

	in.Metrics.RecordOperationAttempt(ctx, operation, in.Service)
	start := time.Now()
	defer func() {
		in.Metrics.RecordOperationDuration(ctx, operation, in.Service, time.Since(start))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operation, r)
			in.Logger.ErrorContext(ctx, "Critical panic recovered",
				attr.String("operation", operation),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			in.Metrics.RecordOperationFailure(ctx, operation, in.Service)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			var zero T
			result = zero
		}
	}()

	result, err = fn(ctx)
	if err != nil {
		in.Metrics.RecordOperationFailure(ctx, operation, in.Service)
		if apperrors.IsClientVisible(err) {
			in.Logger.WarnContext(ctx, "Operation rejected",
				attr.String("operation", operation),
				attr.String("kind", string(apperrors.KindOf(err))),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			return result, err
		}
		in.Logger.ErrorContext(ctx, "Operation failed with error",
			attr.String("operation", operation),
			attr.ExtractCorrelationID(ctx),
			attr.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	in.Metrics.RecordOperationSuccess(ctx, operation, in.Service)
	in.Logger.DebugContext(ctx, operation+" completed successfully",
		attr.String("operation", operation),
		attr.ExtractCorrelationID(ctx),
	)
	return result, nil
}
