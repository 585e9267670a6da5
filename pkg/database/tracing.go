package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/baignoire/fitmatch/pkg/database"

// slowQueryPolicy pairs the threshold with its destination logger so both
// swap atomically under SetSlowQueryLogging.
type slowQueryPolicy struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQuery atomic.Pointer[slowQueryPolicy]

// SetSlowQueryLogging configures slow query detection. Operations that run
// past the threshold are logged as warnings with their statement and elapsed
// time. A zero threshold or nil logger disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQuery.Store(&slowQueryPolicy{threshold: threshold, logger: logger})
}

func (p *slowQueryPolicy) logIfSlow(ctx context.Context, operation, statement string, elapsed time.Duration, err error) {
	if p == nil || p.threshold <= 0 || p.logger == nil || elapsed < p.threshold {
		return
	}
	attrs := []any{
		slog.String("operation", operation),
		slog.String("statement", statement),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	p.logger.WarnContext(ctx, "slow query detected", attrs...)
}

// TraceQuery opens a client span for one database operation and returns the
// callback that closes it:
//
//	ctx, end := database.TraceQuery(ctx, "edges.BulkInsert", query)
//	defer func() { end(err) }()
//
// The callback records err on the span and, when slow query logging is
// configured, reports operations that exceeded the threshold.
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		slowQuery.Load().logIfSlow(ctx, operation, statement, time.Since(start), err)
	}
}
