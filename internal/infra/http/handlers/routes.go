package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
)

type RouterConfig struct {
	Leads          *LeadHandler
	Analytics      *AnalyticsHandler
	Health         *HealthHandler
	Limiter        middleware.Limiter
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.UserHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", cfg.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(middleware.RateLimit(cfg.Limiter, cfg.Logger))
		}
		r.Use(middleware.RequireUser)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", cfg.Leads.List)
			r.Post("/", cfg.Leads.Create)
			r.Get("/{id}", cfg.Leads.Get)
			r.Put("/{id}", cfg.Leads.Update)
			r.Delete("/{id}", cfg.Leads.Delete)
			r.Post("/{id}/notes", cfg.Leads.AddNote)
			r.Patch("/{id}/status", cfg.Leads.UpdateStatus)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", cfg.Analytics.Dashboard)
			r.Get("/export", cfg.Analytics.Export)
		})
	})

	return r
}
