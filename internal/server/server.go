// Package server
//
// @title Sendwave Gateway API
// @version 1.0
// @description Page routing, sign-in and session API for the Sendwave web app
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sendwave-dev/sendwave/internal/auth"
	"github.com/sendwave-dev/sendwave/internal/config"
	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/models"
	"github.com/sendwave-dev/sendwave/internal/routes"
)

// queuesRoot is where the Asynq monitoring UI is mounted
const queuesRoot = "/admin/queues"

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	validator   *validator.Validate
	asynqClient *asynq.Client
	routes      *routes.Table
	guard       *guard.Guard
	activity    ActivityRecorder
	queues      http.Handler
	version     string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := OpenDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Initialize Asynq client for enqueueing activity events
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}
	asynqClient := asynq.NewClient(redisOpt)

	monitor := asynqmon.New(asynqmon.Options{
		RootPath:     queuesRoot,
		RedisConnOpt: redisOpt,
	})

	server, err := newServer(db, cfg, zlog, version, NewQueueRecorder(asynqClient), monitor)
	if err != nil {
		asynqClient.Close()
		return nil, err
	}
	server.asynqClient = asynqClient

	return server, nil
}

// newServer wires a server around an open database
func newServer(db *gorm.DB, cfg *config.Config, zlog zerolog.Logger, version string, recorder ActivityRecorder, queues http.Handler) (*Server, error) {
	// Load JWT secret from database (auto-generated during first setup)
	var cfgRow models.Config
	if err := db.First(&cfgRow).Error; err == nil {
		auth.InitializeJWT(cfgRow.JWTSecret)
		zlog.Debug().Msg("Loaded JWT secret from database")
	} else {
		// JWT will be initialized during setupFirstAdmin
		zlog.Info().Msg("No config found - JWT will be initialized during first setup")
	}

	// Gin binds through its own validator instance; register custom rules there
	validate, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil, fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		return role == guard.RoleAdmin || role == guard.RoleUser
	}); err != nil {
		return nil, fmt.Errorf("failed to register role validation: %w", err)
	}

	table, paths, err := loadRoutes(cfg)
	if err != nil {
		return nil, err
	}

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: validate,
		routes:    table,
		guard:     guard.New(paths),
		activity:  recorder,
		queues:    queues,
		version:   version,
	}

	server.setupRouter()

	return server, nil
}

// loadRoutes reads the page declarations file, falling back to the built-in table
func loadRoutes(cfg *config.Config) (*routes.Table, guard.Paths, error) {
	if cfg.Server.RoutesFile == "" {
		return routes.Default(), guard.DefaultPaths(), nil
	}

	table, paths, err := routes.LoadFile(cfg.Server.RoutesFile)
	if err != nil {
		return nil, guard.Paths{}, fmt.Errorf("failed to load routes from %s: %w", cfg.Server.RoutesFile, err)
	}
	return table, paths, nil
}

// OpenDatabase opens the SQLite database with production settings and migrates it
func OpenDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns      = 8         // Reduced for SQLite efficiency
		maxIdleConns      = 4         // Reduced proportionally
		connMaxLifetime   = 300       // 5 minutes
		busyTimeout       = 5000      // 5 seconds
		cacheSize         = 10000     // 10MB
		walAutocheckpoint = 1000      // WAL auto-checkpoint pages
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA wal_autocheckpoint=%d", walAutocheckpoint),
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	var journalMode string
	db.Raw("PRAGMA journal_mode").Scan(&journalMode)
	zlog.Debug().Str("journal_mode", journalMode).Str("path", cfg.Database.URL).Msg("Database ready")

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Every request gets its session resolved; guards decide what it may reach
	s.router.Use(SessionMiddleware(s.db, s.config.Auth.CookieSecure, s.logger))

	s.router.GET("/health", s.healthCheck)

	// Public API
	s.router.POST("/api/setup", s.setupFirstAdmin)
	s.router.POST("/api/auth/login", s.login)
	s.router.POST("/api/auth/logout", s.logout)
	s.router.GET("/api/routes", s.getRoutes)

	api := s.router.Group("/api")
	api.Use(s.APIGuard(guard.Authenticated()))
	{
		api.GET("/auth/me", s.getCurrentUser)
		api.PUT("/auth/view", s.APIGuard(guard.AuthenticatedAdmin()), s.setCurrentView)

		admin := api.Group("")
		admin.Use(s.APIGuard(guard.AuthenticatedAdmin()))
		{
			admin.GET("/users", s.listUsers)
			admin.POST("/users", s.createUser)
			admin.DELETE("/users/:id", s.deleteUser)

			admin.GET("/activity", s.listActivity)
		}
	}

	if s.queues != nil {
		s.router.Any(queuesRoot+"/*path", s.PageGuard(s.queuesRoute()), gin.WrapH(s.queues))
	}

	// Everything else is a page navigation resolved against the route table
	s.router.NoRoute(s.servePage)
}

// queuesRoute is the declared route guarding the monitoring UI
func (s *Server) queuesRoute() routes.Route {
	if match, ok := s.routes.Match(queuesRoot); ok {
		return match.Route
	}
	return routes.Route{Name: "queues", Path: queuesRoot, Policy: guard.AuthenticatedAdmin()}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "sendwave-gateway",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := s.config.Server.ListenAddr

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Int("routes", len(s.routes.Routes())).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	if s.asynqClient != nil {
		if err := s.asynqClient.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq client")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		} else {
			s.logger.Info().Msg("Database closed successfully")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
