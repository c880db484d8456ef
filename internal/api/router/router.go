package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/cleaning-quiz-platform/internal/http/middleware"
	"github.com/wolfman30/cleaning-quiz-platform/internal/leads"
	"github.com/wolfman30/cleaning-quiz-platform/internal/quiz"
	"github.com/wolfman30/cleaning-quiz-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	QuizHandler        *quiz.Handler
	LeadsHandler       *leads.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// Readiness probes, keyed by dependency name (optional).
	ReadinessChecks map[string]Check

	// Per-IP limit for submit and callback endpoints. Zero disables it.
	SubmitRatePerSecond float64
	SubmitBurst         int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	var guards []func(http.Handler) http.Handler
	if cfg.SubmitRatePerSecond > 0 {
		limiter := httpmiddleware.NewRateLimiter(cfg.SubmitRatePerSecond, cfg.SubmitBurst)
		guards = append(guards, httpmiddleware.RateLimit(limiter))
	}

	r.Get("/health", healthHandler)
	r.Get("/ready", readinessHandler(cfg.ReadinessChecks, cfg.Logger))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.QuizHandler != nil {
		r.Mount("/quiz", cfg.QuizHandler.Routes(guards...))
	}

	if cfg.LeadsHandler != nil {
		r.With(guards...).Post("/leads/callback", cfg.LeadsHandler.CreateCallback)

		if cfg.AdminAuthSecret != "" {
			r.Route("/admin", func(admin chi.Router) {
				admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
				admin.Get("/leads", cfg.LeadsHandler.ListLeads)
				admin.Get("/leads/{leadID}", cfg.LeadsHandler.GetLead)
				admin.Delete("/leads/{leadID}/velocity", cfg.LeadsHandler.ResetVelocity)
			})
		}
	}

	return r
}
