// Package httpserver exposes the pricing, estimate and usage services over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/draftlock/internal/config"
	"github.com/davidbz/draftlock/internal/httpserver/middleware"
	"github.com/davidbz/draftlock/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	metrics     *observability.Metrics
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	metrics *observability.Metrics,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      *cfg,
		handler:     handler,
		metrics:     metrics,
		middlewares: middlewares,
		srv:         nil,
	}
}

// Routes builds the routed handler with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/transform", s.handler.HandleTransform)
	mux.HandleFunc("POST /v1/draft", s.handler.HandleDraft)
	mux.HandleFunc("POST /v1/estimate", s.handler.HandleEstimate)
	mux.HandleFunc("GET /v1/estimate", s.handler.HandleLatestEstimate)
	mux.HandleFunc("GET /v1/estimate/stream", s.handler.HandleEstimateStream)
	mux.HandleFunc("GET /v1/usage", s.handler.HandleUsage)
	mux.HandleFunc("DELETE /v1/usage", s.handler.HandleResetUsage)
	mux.HandleFunc("GET /v1/pricing", s.handler.HandlePricing)
	mux.HandleFunc("GET /v1/pricing/{model}", s.handler.HandleModelRate)
	mux.HandleFunc("GET /v1/templates", s.handler.HandleTemplates)
	mux.HandleFunc("GET /health", s.handler.HandleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	if s.middlewares == nil {
		return mux
	}
	return s.middlewares(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
