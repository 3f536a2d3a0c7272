package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haseeburrahmann/mandi-reviews/internal/config"
	"github.com/Haseeburrahmann/mandi-reviews/internal/event"
	handler "github.com/Haseeburrahmann/mandi-reviews/internal/handler/http"
	"github.com/Haseeburrahmann/mandi-reviews/internal/repository/postgres"
	"github.com/Haseeburrahmann/mandi-reviews/internal/service"
	"github.com/Haseeburrahmann/mandi-reviews/migrations"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/database"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/health"
	pkgkafka "github.com/Haseeburrahmann/mandi-reviews/pkg/kafka"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/middleware"
	"github.com/Haseeburrahmann/mandi-reviews/pkg/tracing"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates the application, initializing every dependency.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// OpenTelemetry tracing (no-op unless enabled).
	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  "review-service",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Schema migrations, including the unique index on email that
	// backs the duplicate-submission guarantee.
	if err := database.RunMigrations(ctx, pool, migrations.FS, migrations.Dir, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}
	database.RegisterPoolMetrics(pool, "review")

	// Kafka producer for review.submitted events.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	repo := postgres.NewReviewRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	reviewService := service.NewReviewService(repo, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterConfig{
		ReviewService: reviewService,
		Health:        healthHandler,
		ReviewFormURL: cfg.ReviewFormURL,
		CORS:          corsCfg,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
