package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapsight/snapsight/internal/database"
	mw "github.com/snapsight/snapsight/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	Analyze      http.HandlerFunc
	AdminAnalyze http.HandlerFunc

	// AdminMiddleware guards the privileged route (403 without valid token).
	AdminMiddleware func(http.Handler) http.Handler

	// BurstLimiter optionally rate-limits the public analyze route.
	BurstLimiter func(http.Handler) http.Handler
}

// RouterConfig carries the static values surfaced on the health route.
type RouterConfig struct {
	Bucket       string
	QuotaEnabled bool
}

func NewRouter(pool *pgxpool.Pool, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware. CORS wraps everything so error and pre-flight
	// responses carry the same headers as successes.
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]any{
			"status":        "alive",
			"bucket":        cfg.Bucket,
			"quota_enabled": cfg.QuotaEnabled,
			"database":      "healthy",
		}
		if pool == nil {
			health["database"] = "not configured"
		} else if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
		}
		JSON(w, http.StatusOK, health)
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if h.BurstLimiter != nil {
			r.Use(h.BurstLimiter)
		}
		r.Post("/analyze", h.Analyze)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.AdminMiddleware)
		r.Post("/admin/analyze", h.AdminAnalyze)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Fail(w, ErrNotFound)
	})

	return r
}
