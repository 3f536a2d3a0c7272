package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Haseeburrahmann/mandi-reviews/internal/service"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/health"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/middleware"
)

// RouterConfig carries the handler dependencies and routing options.
type RouterConfig struct {
	ReviewService *service.ReviewService
	Health        *health.Handler
	ReviewFormURL string
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

// NewRouter creates a chi router with all review service routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("review-service"))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("review"))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	reviewHandler := NewReviewHandler(cfg.ReviewService, cfg.Logger)
	qrHandler := NewQRCodeHandler(cfg.ReviewFormURL, cfg.Logger)

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", reviewHandler.SubmitReview)
		r.Get("/", reviewHandler.ListReviews)
	})

	r.Get("/api/v1/qr", qrHandler.GetQRCode)

	return r
}
