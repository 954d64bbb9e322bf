package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/framepilot/optimizer"
	"github.com/jamesainslie/framepilot/pkg/sim"
)

// statusSource is what the status endpoint reports on.
type statusSource interface {
	Snapshot() optimizer.Snapshot
}

// statusBody is the /snapshot response.
type statusBody struct {
	Timestamp time.Time          `json:"timestamp"`
	Optimizer optimizer.Snapshot `json:"optimizer"`
	Engine    *sim.Stats         `json:"engine,omitempty"`
}

// newStatusRouter serves GET /metrics (Prometheus) and GET /snapshot (JSON).
// engine may be nil.
func newStatusRouter(gatherer prometheus.Gatherer, src statusSource, engine func() sim.Stats) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		body := statusBody{Timestamp: time.Now().UTC(), Optimizer: src.Snapshot()}
		if engine != nil {
			s := engine()
			body.Engine = &s
		}
		writeJSON(w, http.StatusOK, body)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/snapshot", http.StatusTemporaryRedirect)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Get("cli").Warn("encoding status response", "err", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Get("cli").Debug("status request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// serveStatus runs the status server until ctx is done.
func serveStatus(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Get("cli").Info("status server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
