// internal/server/server.go

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FloodMonitorAPI/internal/config"
	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/middleware"
)

// RouteRegistrar is implemented by every HTTP handler group.
type RouteRegistrar interface {
	RegisterRoutes(r *mux.Router)
}

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	cfg        *config.Config
	log        *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Server {
	router := mux.NewRouter()

	return &Server{
		router: router,
		cfg:    cfg,
		log:    log,
		httpServer: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:        router,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		},
	}
}

// Router exposes the mux for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// RegisterHandlers mounts the handlers at the root. Device firmware posts to
// /data, so there is no versioned prefix. ctx bounds background middleware
// goroutines.
func (s *Server) RegisterHandlers(ctx context.Context, handlers ...RouteRegistrar) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RequestLogger(s.log))
	s.router.Use(middleware.Metrics)
	s.router.Use(middleware.CORS(s.cfg.Security.CORSAllowedOrigins, s.cfg.Security.CORSAllowedMethods))
	s.router.Use(middleware.Recovery(s.log))

	if s.cfg.Security.EnableRateLimit {
		s.router.Use(middleware.RateLimit(ctx, s.cfg.Security.RateLimitPerMinute))
	}

	for _, h := range handlers {
		h.RegisterRoutes(s.router)
	}
	s.router.Path("/metrics").Handler(promhttp.Handler())

	// Preflight requests only need to match a route for CORS to answer them.
	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.log.Info("All handlers registered")
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}
