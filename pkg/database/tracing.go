package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Haseeburrahmann/mandi-reviews/pkg/database"

type slowQuerySettings struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueries slowQuerySettings

// SetSlowQueryLogging enables warning logs for queries exceeding the
// threshold. A zero threshold disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQueries.mu.Lock()
	defer slowQueries.mu.Unlock()
	slowQueries.threshold = threshold
	slowQueries.logger = logger
}

func (s *slowQuerySettings) snapshot() (time.Duration, *slog.Logger) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold, s.logger
}

func logIfSlow(ctx context.Context, operation, statement string, elapsed time.Duration, err error) {
	threshold, logger := slowQueries.snapshot()
	if threshold <= 0 || logger == nil || elapsed < threshold {
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
	logger.WarnContext(ctx, "slow query detected", attrs...)
}

// TraceQuery starts a span for a database operation. The returned
// function must be called when the operation completes:
//
//	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
//	defer func() { end(err) }()
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

		logIfSlow(ctx, operation, statement, time.Since(start), err)
	}
}
