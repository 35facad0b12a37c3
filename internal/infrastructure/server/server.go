package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/taskmaster/todolist/docs"
	"github.com/taskmaster/todolist/internal/adapters/events"
	httpHandlers "github.com/taskmaster/todolist/internal/adapters/http"
	"github.com/taskmaster/todolist/internal/adapters/imagehost"
	"github.com/taskmaster/todolist/internal/adapters/repository"
	"github.com/taskmaster/todolist/internal/application/services"
	"github.com/taskmaster/todolist/internal/infrastructure/cache"
	"github.com/taskmaster/todolist/internal/infrastructure/config"
	"github.com/taskmaster/todolist/internal/infrastructure/database"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// Services are the application services behind the HTTP routes
type Services struct {
	Auth    ports.AuthService
	Tasks   ports.TaskService
	Uploads ports.UploadService
	Status  ports.StatusService
}

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	services Services
	closers  []func() error
}

// New wires repositories, adapters and services on top of db and returns
// a server ready to start.
func New(ctx context.Context, cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db.DB)
	taxonomyRepo := repository.NewTaxonomyRepository(db.DB)
	attachmentRepo := repository.NewAttachmentRepository(db.DB)
	historyRepo := repository.NewHistoryRepository(db.DB)

	var closers []func() error

	// Optional adapters degrade to local fallbacks
	var publisher ports.EventPublisher = events.Noop{}
	if cfg.RabbitMQ.Enabled {
		p, err := events.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			appLogger.Warnw("Task events disabled", "error", err)
		} else {
			publisher = p
			closers = append(closers, p.Close)
		}
	}

	var rateStore middleware.RateLimiterStore
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			appLogger.Warnw("Redis unavailable, using in-process rate limiting", "error", err)
		} else {
			rateStore = cache.NewRateLimiterStore(rdb, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow)
			closers = append(closers, rdb.Close)
		}
	}

	host, err := imagehost.NewCloudinary(cfg.Cloudinary)
	if err != nil {
		return nil, err
	}
	if !cfg.Cloudinary.IsConfigured() {
		appLogger.Warn("Cloudinary credentials missing, uploads will fail")
	}

	// Initialize services
	svc := Services{
		Auth:    services.NewAuthService(userRepo, cfg.JWT, appLogger),
		Tasks:   services.NewTaskService(taskRepo, taxonomyRepo, attachmentRepo, historyRepo, db, publisher, appLogger),
		Uploads: services.NewUploadService(taskRepo, attachmentRepo, host, cfg.Upload, appLogger),
		Status:  services.NewStatusService(db, userRepo, taskRepo, taxonomyRepo, appLogger),
	}

	srv := NewWithServices(cfg, svc, rateStore, appLogger)
	srv.closers = closers
	return srv, nil
}

// NewWithServices builds the echo instance, middleware and routes around
// already constructed services. A nil rateStore selects the in-memory limiter.
func NewWithServices(cfg *config.Config, svc Services, rateStore middleware.RateLimiterStore, appLogger *logger.Logger) *Server {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.HTTPErrorHandler = httpHandlers.HTTPErrorHandler(appLogger)

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		services: svc,
	}

	server.setupMiddleware(rateStore)

	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(rateStore middleware.RateLimiterStore) {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(requestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
				"request_id", values.RequestID,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: splitOrigins(s.config.Security.CORSAllowedOrigins),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	s.echo.Use(middleware.Gzip())

	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(s.rateLimiter(rateStore))
	}

	// Timeout middleware
	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: s.config.Server.RequestTimeout,
		}))
	}

	if s.config.Server.StaticDir != "" {
		s.echo.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Skipper:    isAPIPath,
			Root:       ".",
			Filesystem: http.Dir(s.config.Server.StaticDir),
			Index:      "index.html",
			HTML5:      true,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	authHandler := httpHandlers.NewAuthHandler(s.services.Auth, s.logger)
	taskHandler := httpHandlers.NewTaskHandler(s.services.Tasks, s.logger)
	uploadHandler := httpHandlers.NewUploadHandler(s.services.Uploads, s.logger)
	statusHandler := httpHandlers.NewStatusHandler(s.services.Status, s.config.App.Version, s.logger)

	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/docs/*", echoSwagger.WrapHandler)

	// Auth routes
	authGroup := s.echo.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authHandler.Me, s.authRequired)
	authGroup.GET("/users", authHandler.CountUsers)

	// Task routes; reads are public
	taskGroup := s.echo.Group("/tasks")
	taskGroup.GET("", taskHandler.ListTasks, s.optionalAuth)
	taskGroup.GET("/categories/all", taskHandler.ListCategories)
	taskGroup.GET("/tags/all", taskHandler.ListTags)
	taskGroup.GET("/:id", taskHandler.GetTask, s.optionalAuth)
	taskGroup.GET("/:id/history", taskHandler.GetHistory, s.authRequired)
	taskGroup.POST("", taskHandler.CreateTask, s.authRequired)
	taskGroup.PUT("/:id", taskHandler.UpdateTask, s.authRequired)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask, s.authRequired)

	// Upload routes
	uploadGroup := s.echo.Group("/upload")
	uploadGroup.POST("", uploadHandler.Upload, s.authRequired)
	uploadGroup.GET("/task/:taskId", uploadHandler.ListByTask)
	uploadGroup.DELETE("/:id", uploadHandler.Delete, s.authRequired)

	// API index and admin routes
	s.echo.GET("/api", statusHandler.Index)
	s.echo.GET("/api/db-status", statusHandler.DBStatus, s.authRequired, s.adminRequired)

	adminGroup := s.echo.Group("/admin", s.authRequired, s.adminRequired)
	adminGroup.GET("/users", authHandler.ListUsers)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todolist_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todolist_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status, _ = httpHandlers.MapError(err)
			}

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.services.Status.Ping(c.Request().Context()); err != nil {
		s.logger.Warnw("Readiness check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and releases adapters
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	err := s.echo.Shutdown(ctx)
	for _, closeFn := range s.closers {
		if cerr := closeFn(); cerr != nil {
			s.logger.Warnw("Failed to close adapter", "error", cerr)
		}
	}
	return err
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// API prefixes bypass the static file server and its SPA fallback
var apiPrefixes = []string{"/auth", "/tasks", "/upload", "/api", "/admin", "/docs", "/metrics", "/health", "/ready"}

func isAPIPath(c echo.Context) bool {
	path := c.Request().URL.Path
	for _, prefix := range apiPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
