// Package api serves the playlist transforms over HTTP.
//
// POST /master and POST /media take a playlist body and transform options in
// the query string. Options the query leaves out are taken from the
// configured filter defaults.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/as/hlsfilter/internal/cache"
	"github.com/as/hlsfilter/internal/config"
	"github.com/as/hlsfilter/internal/log"
	"github.com/as/hlsfilter/internal/metrics"
)

// Server handles playlist transform requests
type Server struct {
	holder *config.Holder
	cache  cache.Cache
	logger zerolog.Logger
}

// New returns a server reading its configuration from holder. A nil cache
// disables response caching.
func New(holder *config.Holder, c cache.Cache) *Server {
	if c == nil {
		c = cache.Nop{}
	}
	return &Server{holder: holder, cache: c, logger: log.WithComponent("api")}
}

// Handler builds the router. Middleware that depends on configuration
// (tracing and rate limiting) is fixed when Handler is called; filter
// defaults and body limits are read per request.
func (s *Server) Handler() http.Handler {
	cfg := s.holder.Get()

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(metrics.Middleware())
	if cfg.Telemetry.Enabled {
		r.Use(tracing("hlsfilter"))
	}
	r.Use(log.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(rateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
		}
		r.Post("/master", s.handleMaster)
		r.Post("/media", s.handleMedia)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "NOT_FOUND", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "")
	})
	return r
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.holder.Get()
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str(log.FieldEvent, "server.listening").Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Str(log.FieldEvent, "server.shutdown").Dur("timeout", cfg.Server.ShutdownTimeout).Msg("shutting down HTTP server")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(sctx)
	<-errc
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.cache.Ping(ctx); err != nil {
		log.FromContext(r.Context()).Warn().Err(err).Msg("cache not ready")
		writeProblem(w, r, http.StatusServiceUnavailable, CodeUnavailable, "cache unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ready\n"))
}
