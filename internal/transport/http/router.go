package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
)

// RouteRegistrar is implemented by the domain handlers that mount their own routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backend is reachable.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router serves.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Authenticator middleware.Authenticator
	Auth          *AuthHandler
	Media         *MediaHandler
	Objects       *ObjectHandler
	// Protected handlers are mounted behind bearer authentication.
	Protected    []RouteRegistrar
	HealthChecks map[string]HealthCheck
}

// NewRouter wires the middleware stack and every endpoint.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", healthHandler(d.HealthChecks, d.Logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Objects != nil {
		d.Objects.Register(r)
	}
	if d.Auth != nil {
		d.Auth.RegisterPublic(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Authenticator, d.Logger))
		if d.Auth != nil {
			d.Auth.RegisterProtected(r)
		}
		if d.Media != nil {
			d.Media.Register(r)
		}
		for _, h := range d.Protected {
			h.Register(r)
		}
	})
	return r
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"backend", name,
					"error", err,
				)
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = "unavailable"
				continue
			}
			body[name] = "ok"
		}
		shared.WriteJSON(w, status, body)
	}
}
