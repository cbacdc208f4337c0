package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures the shared middleware stack for both listeners.
type ServerConfig struct {
	CORSAllowedOrigins []string
	MetricsPath        string
}

// NewRouter builds a chi.Router with the common middleware stack: recovery,
// request ID, structured logging, Prometheus metrics, CORS, and the
// X-Process-Time timing header applied to every response.
func NewRouter(cfg ServerConfig, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Metrics)
	r.Use(ProcessTime)

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	return r
}

// MountMetrics exposes reg at cfg.MetricsPath (default /metrics).
func MountMetrics(r chi.Router, cfg ServerConfig, reg *prometheus.Registry) {
	path := cfg.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	r.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

// ServiceHealth is one downstream's health contribution to GET /health.
type ServiceHealth func(ctx context.Context) bool

// HealthStatus is the JSON response body for GET /health.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// HandleHealth builds the GET /health handler: "healthy" iff every probe in
// checks succeeds, else "degraded". "gateway" and "admin" are always reported
// healthy and are not probed; only the entries of checks are.
func HandleHealth(checks map[string]ServiceHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string]string, len(checks)+2)
		services["gateway"] = "healthy"
		services["admin"] = "healthy"

		allHealthy := true
		for name, check := range checks {
			if check(r.Context()) {
				services[name] = "healthy"
			} else {
				services[name] = "unhealthy"
				allHealthy = false
			}
		}

		status := "healthy"
		if !allHealthy {
			status = "degraded"
		}

		Respond(w, http.StatusOK, HealthStatus{Status: status, Services: services})
	}
}
