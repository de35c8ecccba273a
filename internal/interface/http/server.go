// Package http is the REST adapter of the enrollment engine. It translates
// requests into commands and queries and maps outcome kinds onto status codes.
// Identity is taken from headers set by the upstream gateway; no
// authentication happens here.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/alem-hub/lms-enrollment/internal/application/command"
	"github.com/alem-hub/lms-enrollment/internal/application/query"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/messaging"
	"github.com/alem-hub/lms-enrollment/internal/interface/http/handlers"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Addr - address to bind (default: ":8080").
	Addr string

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// AllowedOrigins - allowed origins for CORS. Empty disables CORS.
	AllowedOrigins []string

	// Mode - gin mode (debug, release, test).
	Mode string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
		Mode:           gin.ReleaseMode,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	EnrollStudent   *command.EnrollStudentHandler
	UnenrollStudent *command.UnenrollStudentHandler
	UpdateProgress  *command.UpdateProgressHandler

	// Query Handlers (CQRS Read Side)
	ListModuleProgress *query.ListModuleProgressHandler

	// Observability
	Metrics       *command.Metrics
	EventMetrics  *messaging.EventBusMetrics
	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewCompositeHealthChecker("")
	}
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	s := &Server{
		config: config,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.Named("http"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Addr,
		Handler:        s.engine,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupMiddleware() {
	s.engine.Use(handlers.RequestID(s.logger), handlers.AccessLog(), handlers.Recovery())

	if len(s.config.AllowedOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = s.config.AllowedOrigins
		cfg.AllowHeaders = []string{
			"Origin", "Content-Length", "Content-Type",
			handlers.HeaderRequestID, handlers.HeaderActorID, handlers.HeaderActorRole,
		}
		cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
		s.engine.Use(cors.New(cfg))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/live", s.handleLive)

	s.engine.NoRoute(func(c *gin.Context) {
		handlers.AbortWithError(c, http.StatusNotFound, "Endpoint not found")
	})

	api := s.engine.Group("/api/v1")
	api.Use(handlers.RequireActor())
	{
		courses := api.Group("/courses")
		courses.POST("/:courseId/enroll", s.handleEnroll)
		courses.DELETE("/:courseId/unenroll", s.handleUnenroll)
		courses.GET("/:courseId/modules/progress", s.handleListModuleProgress)

		api.PATCH("/modules/:moduleId/progress", s.handleUpdateProgress)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	err := s.httpServer.ListenAndServe()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
