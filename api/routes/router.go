package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/coverledger/api/controllers"
	"github.com/angelmondragon/coverledger/api/middleware"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

// NewOpsRouter serves probes and the Prometheus scrape endpoint for a worker.
func NewOpsRouter(cfg *config.Config, logg *logger.Logger, gatherer prometheus.Gatherer, checks ...controllers.Check) chi.Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// MountDeadLetters exposes read-only outbox dead letter inspection.
func MountDeadLetters(r chi.Router, logg *logger.Logger, store controllers.DeadLetterStore) {
	r.Route("/outbox/dlq", func(r chi.Router) {
		r.Get("/", controllers.ListDeadLetters(logg, store))
		r.Get("/{eventID}", controllers.GetDeadLetter(logg, store))
	})
}
