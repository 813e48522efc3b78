package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/coverledger/api/controllers"
	"github.com/angelmondragon/coverledger/api/routes"
	"github.com/angelmondragon/coverledger/pkg/config"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Serve runs the ops listener until ctx is canceled. A blank address is a no-op.
func Serve(ctx context.Context, cfg config.OpsConfig, handler http.Handler, logg *logger.Logger) error {
	if cfg.Addr == "" {
		return nil
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.Addr), "ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// StartOps serves health and metrics in the background for the lifetime of ctx.
func StartOps(ctx context.Context, cfg *config.Config, logg *logger.Logger, checks ...controllers.Check) {
	StartOpsHandler(ctx, cfg, logg, routes.NewOpsRouter(cfg, logg, prometheus.DefaultGatherer, checks...))
}

// StartOpsHandler is StartOps for a router the caller has extended.
func StartOpsHandler(ctx context.Context, cfg *config.Config, logg *logger.Logger, handler http.Handler) {
	go func() {
		if err := Serve(ctx, cfg.Ops, handler, logg); err != nil {
			logg.Error(ctx, "ops server stopped", err)
		}
	}()
}
