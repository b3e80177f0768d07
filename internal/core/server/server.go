package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/health"
	middleware "github.com/mohammed-shakir/wfs-draw-query/internal/core/middleware"
)

type Routes struct {
	Version      string
	CORSOrigins  []string
	Capabilities http.Handler
	Ready        map[string]health.Checker
}

func NewRouter(logger *slog.Logger, routes Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(routes.CORSOrigins))

	r.Get("/healthz", health.Liveness(routes.Version))
	r.Get("/readyz", health.Readiness(routes.Ready))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	if routes.Capabilities != nil {
		r.Method(http.MethodGet, "/api/capabilities", routes.Capabilities)
	}
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, addr string, logger *slog.Logger, routes Routes) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(logger, routes),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
