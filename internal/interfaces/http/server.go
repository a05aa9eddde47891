// Package http provides the HTTP adapter for the application layer.
// Handlers translate requests into service calls on behalf of the actor
// named by the bearer token.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/asset-registry/internal/application/service"
	"github.com/garyjia/asset-registry/internal/auth"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TokenValidator resolves bearer tokens to claims
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// HTTPMetrics records request metrics and serves the scrape endpoint
type HTTPMetrics interface {
	RecordHTTPRequest(method, route string, statusCode int, durationSeconds float64)
	Handler() http.Handler
}

// HealthChecker reports whether the server's dependencies are usable
type HealthChecker interface {
	CheckHealth(ctx context.Context) (healthy bool, components map[string]string)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Services groups the application services exposed over HTTP.
// A nil Health reports the server as healthy.
type Services struct {
	Assets     service.AssetService
	Ministries service.MinistryService
	Reports    service.ReportService
	Health     HealthChecker
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	tokens     TokenValidator
	metrics    HTTPMetrics
	logger     Logger
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(
	config ServerConfig,
	services Services,
	tokens TokenValidator,
	metrics HTTPMetrics,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware())
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api/v1", s.authMiddleware())
	{
		assets := api.Group("/assets")
		assets.POST("", h.CreateAsset)
		assets.GET("", h.ListAssets)
		assets.POST("/bulk-approve", h.BulkApprove)
		assets.GET("/:id", h.GetAsset)
		assets.PUT("/:id", h.EditAsset)
		assets.POST("/:id/transitions", h.Transition)
		assets.GET("/:id/audit", h.AssetHistory)

		reports := api.Group("/reports")
		reports.GET("/summary", h.Summary)
		reports.GET("/assets.xlsx", h.ExportAssets)

		ministries := api.Group("/ministries")
		ministries.GET("", h.ListMinistries)
		ministries.GET("/:id", h.GetMinistry)
		ministries.PUT("/:id", h.PutMinistry)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
