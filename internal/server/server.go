// Package server hosts the HTTP API: the core routes, every enabled module's
// routes under /api/v1/{module}, and the shared middleware chain.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/plugin"
	"github.com/HerbHall/artiscatalog/internal/version"
)

// Server is the catalog HTTP server.
type Server struct {
	httpServer *http.Server
	registry   *plugin.Registry
	logger     *zap.Logger
	mux        *http.ServeMux

	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	gate     Middleware
	extra    []route
}

type route struct {
	pattern string
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithTimeouts overrides the HTTP server timeouts. Zero values keep the
// defaults.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.httpServer.ReadTimeout = read
		}
		if write > 0 {
			s.httpServer.WriteTimeout = write
		}
		if idle > 0 {
			s.httpServer.IdleTimeout = idle
		}
	}
}

// WithMetrics records request metrics in m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithGate installs an access-control middleware in front of the mux. It must
// pass the request through unchanged.
func WithGate(gate Middleware) Option {
	return func(s *Server) { s.gate = gate }
}

// WithRoute mounts a handler on an absolute ServeMux pattern, outside the
// module namespace.
func WithRoute(pattern string, h http.Handler) Option {
	return func(s *Server) { s.extra = append(s.extra, route{pattern: pattern, handler: h}) }
}

// New creates a new Server instance.
func New(addr string, reg *plugin.Registry, logger *zap.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		registry: reg,
		logger:   logger,
		mux:      mux,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerCoreRoutes()
	s.mountPluginRoutes()

	mws := []Middleware{
		RequestID(),
		Recoverer(logger),
		Logging(logger, s.metrics),
		VersionHeader(),
	}
	if s.gate != nil {
		mws = append(mws, s.gate)
	}
	s.httpServer.Handler = Chain(mux, mws...)
	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	for _, r := range s.extra {
		s.mux.Handle(r.pattern, r.handler)
	}
}

// mountPluginRoutes registers all module routes under /api/v1/{module}.
func (s *Server) mountPluginRoutes() {
	for name, routes := range s.registry.AllRoutes() {
		for _, r := range routes {
			pattern := fmt.Sprintf("/api/v1/%s%s", name, r.Path)
			if r.Method != "" {
				pattern = r.Method + " " + pattern
			}
			s.mux.HandleFunc(pattern, r.Handler)
			s.logger.Debug("mounted route",
				zap.String("plugin", name),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
//
//	@Summary		Health check
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "artiscatalog",
		"version": version.Map(),
	})
}

// handleIndex lists the mounted API namespaces. It is the landing page after
// login.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	links := map[string]string{
		"health":  "/api/v1/health",
		"plugins": "/api/v1/plugins",
	}
	for name := range s.registry.AllRoutes() {
		links[name] = "/api/v1/" + name
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"service": version.Name,
		"version": version.Short(),
		"links":   links,
	})
}

// handlePlugins returns the registered modules and whether each is enabled.
func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, s.registry.Statuses())
}
