package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/coverledger/api/responses"
	"github.com/angelmondragon/coverledger/pkg/config"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

const (
	envHeader    = "X-Coverledger-Env"
	readyTimeout = 3 * time.Second
)

// Check is a named readiness probe, usually a client's Ping.
type Check struct {
	Name string
	Ping func(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live", "service": cfg.Service.Kind})
	}
}

// HealthReady reports 503 with the first failing dependency.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" not ready").
					WithDetails(map[string]string{"dependency": check.Name})
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready", "service": cfg.Service.Kind})
	}
}
