// Package http wires the HTTP surface of the findings API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/internal/config"
	"github.com/remedyops/findings-api/internal/infra/http/handler"
	"github.com/remedyops/findings-api/internal/infra/http/middleware"
	"github.com/remedyops/findings-api/pkg/logger"
)

// Handlers groups the handlers the router mounts.
type Handlers struct {
	Finding     *handler.FindingHandler
	Remediation *handler.RemediationHandler
	Health      *handler.HealthHandler
}

// NewRouter assembles the middleware chain and the route table.
func NewRouter(cfg *config.Config, auth *app.AuthService, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Metrics(),
		middleware.Logging(log),
	)

	r.Get("/healthz", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(auth, cfg.Auth.JWTSecret))

		r.Post("/findings/search", h.Finding.Search)
		r.Post("/findings/actions", h.Finding.Action)
		r.Post("/findings/export", h.Finding.Export)
		r.Put("/findings", h.Finding.Save)
		r.Delete("/findings/{findingType}/{findingID}", h.Finding.Delete)

		r.Post("/remediations/search", h.Remediation.Search)
	})

	return r
}
