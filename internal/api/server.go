// Package api hosts the HTTP control server for the effects engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/audiofx/internal/api/middleware"
	v1 "github.com/tphakala/audiofx/internal/api/v1"
	"github.com/tphakala/audiofx/internal/conf"
	"github.com/tphakala/audiofx/internal/logger"
	"github.com/tphakala/audiofx/internal/observability"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultBodyLimit caps request bodies; every body is a small JSON object.
	DefaultBodyLimit = "64K"
)

// Server is the HTTP control server.
type Server struct {
	echo     *echo.Echo
	settings *conf.Settings
	log      logger.Logger
	metrics  *observability.Metrics
	service  v1.EffectsService

	apiController *v1.Controller
	startTime     time.Time
	version       string
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithMetrics enables /metrics and request metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// New builds a server for settings.Server around svc.
func New(settings *conf.Settings, svc v1.EffectsService, opts ...ServerOption) (*Server, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if svc == nil {
		return nil, fmt.Errorf("effects service cannot be nil")
	}

	s := &Server{
		echo:      echo.New(),
		settings:  settings,
		log:       logger.Global().Module("api"),
		service:   svc,
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, mw.SkipPaths("/health", "/metrics")))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}
	s.echo.Use(echomw.BodyLimit(DefaultBodyLimit))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	var groupMw []echo.MiddlewareFunc
	if rl := s.settings.Server.RateLimit; rl.Enabled {
		var onDeny func(string)
		if s.metrics != nil {
			onDeny = s.metrics.HTTP.RecordRateLimited
		}
		groupMw = append(groupMw, mw.NewRateLimiter(rl.Rate, rl.Burst, onDeny))
	}

	group := s.echo.Group("/api/v1", groupMw...)
	s.apiController = v1.New(group, s.service, v1.WithLogger(s.log))
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	state := s.service.State()

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.version,
		"prepared":       state.Prepared,
		"session_id":     state.SessionID,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Run serves on settings.Server.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.startBlocking()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutdown signal received, stopping HTTP server")
	if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return <-errCh
}

// startBlocking serves until the server is shut down.
func (s *Server) startBlocking() error {
	addr := s.settings.Server.Listen
	s.log.Info("Starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("Server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// APIController returns the v1 controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}
