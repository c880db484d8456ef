package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cleaning-quiz-platform/cmd/mainconfig"
	"github.com/wolfman30/cleaning-quiz-platform/internal/api/router"
	"github.com/wolfman30/cleaning-quiz-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/cleaning-quiz-platform/internal/config"
	"github.com/wolfman30/cleaning-quiz-platform/internal/events"
	"github.com/wolfman30/cleaning-quiz-platform/internal/leads"
	"github.com/wolfman30/cleaning-quiz-platform/internal/observability/metrics"
	"github.com/wolfman30/cleaning-quiz-platform/internal/pricing"
	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

func main() {
	// .env is optional; real deployments use the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cleaning-quiz API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	app := buildApp(ctx, cfg, awsCfg, logger)
	defer app.close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var workers sync.WaitGroup
	if app.deliverer != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			app.deliverer.Start(ctx)
		}()
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	workers.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type application struct {
	handler   http.Handler
	deliverer *events.Deliverer
	redis     *redis.Client
	pool      *pgxpool.Pool
	probeDB   *sql.DB
}

func (a *application) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.probeDB != nil {
		_ = a.probeDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// buildApp wires every dependency. Missing Redis, Postgres or AWS settings
// degrade to in-memory or logging implementations.
func buildApp(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *application {
	app := &application{}
	checks := map[string]router.Check{}

	app.redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if app.redis != nil {
		checks["redis"] = bootstrap.RedisCheck(app.redis)
	}

	app.pool = bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if app.pool != nil {
		probe, err := bootstrap.OpenProbeDB(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("readiness probe db unavailable", "error", err)
		} else {
			app.probeDB = probe
			checks["postgres"] = bootstrap.SQLCheck(probe)
		}
	}

	metricsHandler, quizMetrics := setupMetrics()

	var outbox leads.EventWriter
	if app.pool != nil {
		store := events.NewOutboxStore(app.pool)
		outbox = store
		app.deliverer = events.NewDeliverer(store, bootstrap.BuildOutboxDeliveryHandler(cfg, awsCfg, logger), logger).
			WithInterval(cfg.OutboxPollInterval).
			WithObserver(quizMetrics)
	}

	sender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	notifier := bootstrap.BuildLeadNotifier(sender, cfg, logger)
	repo := bootstrap.BuildLeadRepository(app.pool, logger)
	leadService := leads.NewService(repo, outbox, notifier, logger)
	limiter := bootstrap.BuildSubmissionLimiter(app.redis, cfg, logger)

	quizService := quiz.NewService(quiz.Config{
		Storage:  bootstrap.BuildQuizStorage(app.redis, cfg, logger),
		Sink:     leadService,
		Limiter:  limiter,
		Metrics:  quizMetrics,
		Engine:   pricing.NewEngine(pricing.DefaultRates()),
		Estimate: quiz.EstimateOptions{WindowsPerRoom: cfg.WindowsPerRoom},
		MinDwell: cfg.QuizMinDwell,
		Logger:   logger,
	})

	app.handler = router.New(&router.Config{
		Logger:              logger,
		QuizHandler:         quiz.NewHandler(quizService, logger),
		LeadsHandler:        leads.NewHandler(leadService, repo, limiter, logger),
		MetricsHandler:      metricsHandler,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ReadinessChecks:     checks,
		SubmitRatePerSecond: cfg.SubmitRatePerSecond,
		SubmitBurst:         cfg.SubmitBurst,
	})
	return app
}

func setupMetrics() (http.Handler, *metrics.QuizMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	quizMetrics := metrics.NewQuizMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), quizMetrics
}
