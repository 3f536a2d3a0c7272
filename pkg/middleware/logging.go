package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Haseeburrahmann/mandi-reviews/pkg/logger"
)

// RequestLogging logs one line per HTTP request with method, path,
// status, duration, and size. The correlation ID is taken from the
// X-Correlation-ID header or freshly generated, stored in context for
// downstream log enrichment, and echoed back in the response.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get("X-Correlation-ID")
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			ctx := logger.WithCorrelationID(r.Context(), correlationID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Correlation-ID", correlationID)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			l.InfoContext(ctx, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", rec.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", correlationID),
			)
		})
	}
}

// RequestLogger stores a context-enriched logger (correlation_id,
// trace_id, span_id) in the request context so handlers can retrieve it
// with logger.FromContext. Mount after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			enriched := logger.WithContext(ctx, base)
			next.ServeHTTP(w, r.WithContext(logger.NewContext(ctx, enriched)))
		})
	}
}
