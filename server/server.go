// Package server provides HTTP server management and lifecycle handling for the
// medicine lookup front end. It includes middleware configuration, route
// setup and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/giygas/medicaments-lookup/config"
	"github.com/giygas/medicaments-lookup/interfaces"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/metrics"
	"github.com/giygas/medicaments-lookup/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	router   chi.Router
	config   *config.Config
	handler  interfaces.HTTPHandler
	sessions func(http.Handler) http.Handler
	limiter  *RateLimiter
}

// NewServer creates a new server instance. sessions attaches the caller's
// page state to the request context.
func NewServer(cfg *config.Config, httpHandler interfaces.HTTPHandler, sessions func(http.Handler) http.Handler) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.RequestTimeout + 15*time.Second, // searches wait on the backend
			IdleTimeout:  60 * time.Second,
		},
		router:   router,
		config:   cfg,
		handler:  httpHandler,
		sessions: sessions,
		limiter:  NewRateLimiter(DefaultRate, DefaultCapacity),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// Router returns the configured router, for tests
func (s *Server) Router() chi.Router {
	return s.router
}

// Limiter returns the rate limiter so the scheduler can clean it up
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(BlockDirectAccessMiddleware) // Put BEFORE RealIPMiddleware to see original RemoteAddr
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger(), session.CookieName))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.limiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := s.handler

	// Operational routes carry no session
	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessions)

		// Search page
		r.Get("/", h.Index)
		r.Get("/search", h.Search)
		r.Get("/filter", h.Filter)
		r.Post("/recycle", h.Recycle)

		// Reservation modal and toasts
		r.Post("/reserve", h.OpenReservation)
		r.Post("/reserve/confirm", h.ConfirmReservation)
		r.Post("/reserve/cancel", h.CancelReservation)
		r.Get("/reserve/backdrop", h.CancelReservation)
		r.Get("/toasts", h.Toasts)

		// Admin page
		r.Get("/admin", h.AdminPage)
		r.Post("/admin/login", h.AdminLogin)
		r.Post("/admin/inventory", h.AdminUpsert)
		r.Post("/admin/logout", h.AdminLogout)
	})
}

// Start starts the server
func (s *Server) Start() error {
	// Start profiling server if in development mode
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
