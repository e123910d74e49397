// Streamlens - Streaming Platform Log Analytics and ETL
// Copyright 2026 Streamlens Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamlens/streamlens

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/logging"
	"github.com/streamlens/streamlens/internal/metrics"
)

// Router builds the chi handler tree around a Handler.
type Router struct {
	handler *Handler
	cfg     *config.APIConfig
}

// NewRouter creates a router serving h under cfg.
func NewRouter(h *Handler, cfg *config.APIConfig) *Router {
	return &Router{handler: h, cfg: cfg}
}

// Setup wires middleware and routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", router.handler.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		if router.cfg.RateLimit > 0 {
			r.Use(httprate.Limit(
				router.cfg.RateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}

		r.Get("/stats", router.handler.Stats)
		r.Get("/metrics", router.handler.Metrics)
		r.Get("/metrics/summary", router.handler.MetricsSummary)
		r.Get("/records", router.handler.Records)
		r.Post("/pipeline/trigger", router.handler.TriggerPipeline)
	})

	return r
}

// requestLogging records request metrics and emits one structured log line
// per request.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(started)
		metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), elapsed)

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", elapsed).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("Request served")
	})
}

// Server wraps the http.Server lifecycle for supervision.
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP server from the router configuration.
func NewServer(router *Router) *Server {
	timeout := router.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		srv: &http.Server{
			Addr:              router.cfg.Addr,
			Handler:           router.Setup(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout,
			IdleTimeout:       2 * timeout,
		},
	}
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	logging.Info().Str("addr", s.srv.Addr).Msg("Starting HTTP API")
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
