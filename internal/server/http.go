package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds server options.
type Config struct {
	// AuthToken, when set, is required as a bearer token on API routes.
	AuthToken string

	// Registry backs the /metrics endpoint. Metrics are disabled when nil.
	Registry *prometheus.Registry

	// BodyLimit caps request body size (echo syntax, e.g. "1M").
	// Defaults to "1M".
	BodyLimit string
}

// Server wraps the echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// New builds the server and its routes around the shared handler.
func New(handler *Handler, cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true

	bodyLimit := cfg.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}

	// Global middleware stack (order matters).
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(AuthMiddleware(cfg.AuthToken, []string{"/health", "/metrics"}))

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	// API routes
	e.POST("/v1/nikud", handler.GetNikud)
	e.POST("/v1/cache/clear", handler.ClearCache)
	e.GET("/v1/config", handler.GetConfig)
	e.POST("/v1/config", handler.UpdateConfig)
	e.GET("/v1/stats", handler.GetStats)
	e.GET("/v1/status", handler.GetStatus)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler so the server can be driven by
// httptest in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
