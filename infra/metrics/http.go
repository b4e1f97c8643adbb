package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/railjobs/infra/logger"
)

// Route mounts an extra handler next to /metrics.
type Route struct {
	Pattern string
	Handler http.Handler
}

// Handler serves the metrics gathered by g, a /healthz probe and routes.
func Handler(g prometheus.Gatherer, routes ...Route) http.Handler {
	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.Pattern, r.Handler)
	}
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// StartPromServer serves the default registry and routes on addr until ctx
// is canceled.
func StartPromServer(ctx context.Context, addr string, log logger.Logger, routes ...Route) error {
	srv := &http.Server{Addr: addr, Handler: Handler(prometheus.DefaultGatherer, routes...), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("prom server shutdown: %v", err)
		}
	}()
	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
