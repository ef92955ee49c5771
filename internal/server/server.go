// Package server
//
// @title clipvault API
// @version 1.0
// @description Video and image upload service
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clipvault-dev/clipvault/internal/auth"
	"github.com/clipvault-dev/clipvault/internal/config"
	"github.com/clipvault-dev/clipvault/internal/gate"
	"github.com/clipvault-dev/clipvault/internal/media"
	"github.com/clipvault-dev/clipvault/internal/metrics"
	"github.com/clipvault-dev/clipvault/internal/models"
	"github.com/clipvault-dev/clipvault/internal/tasks"
	"github.com/clipvault-dev/clipvault/internal/videos"
)

// Server represents the HTTP server
type Server struct {
	router         *gin.Engine
	db             *gorm.DB
	config         *config.Config
	policy         *gate.Policy
	logger         zerolog.Logger
	tokens         *auth.TokenManager
	resolver       *auth.Resolver
	host           media.Host
	videosService  *videos.Service
	metrics        *metrics.Metrics
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector
	version        string
}

// Options carries already-constructed dependencies. New builds them from
// configuration; tests supply their own.
type Options struct {
	Config         *config.Config
	DB             *gorm.DB
	Host           media.Host
	Enqueuer       videos.DestroyEnqueuer
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
	AsynqClient    *asynq.Client
	AsynqInspector *asynq.Inspector
	Version        string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := OpenDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	host, err := media.New(cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media host: %w", err)
	}

	// Initialize Asynq client for enqueueing tasks
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	}
	asynqClient := asynq.NewClient(redisOpt)
	asynqInspector := asynq.NewInspector(redisOpt)

	return NewFromOptions(Options{
		Config:         cfg,
		DB:             db,
		Host:           host,
		Enqueuer:       tasks.NewEnqueuer(asynqClient, asynqInspector),
		Metrics:        metrics.New(),
		Logger:         zlog,
		AsynqClient:    asynqClient,
		AsynqInspector: asynqInspector,
		Version:        version,
	})
}

// NewFromOptions wires a server from prepared dependencies
func NewFromOptions(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Config.Access == nil {
		return nil, errors.New("config with access policy is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	tokens, err := LoadTokenManager(opts.DB, opts.Logger)
	if err != nil {
		return nil, err
	}

	registerValidators()

	server := &Server{
		db:             opts.DB,
		config:         opts.Config,
		policy:         opts.Config.Access,
		logger:         opts.Logger,
		tokens:         tokens,
		resolver:       auth.NewResolver(tokens, opts.DB, opts.Config.Auth.ResolveTimeout),
		host:           opts.Host,
		videosService:  videos.NewService(opts.DB, opts.Host, opts.Enqueuer, opts.Metrics, opts.Logger),
		metrics:        opts.Metrics,
		asynqClient:    opts.AsynqClient,
		asynqInspector: opts.AsynqInspector,
		version:        opts.Version,
	}

	if err := server.setupRouter(); err != nil {
		return nil, err
	}

	return server, nil
}

// registerValidators adds custom tags to gin's validator
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", validators.NotBlank)
	}
}

// OpenDatabase opens the configured database and runs migrations. URLs with a
// postgres scheme use the Postgres driver; anything else is a SQLite path.
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

	gormConfig := &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	}

	isPostgres := strings.HasPrefix(cfg.Database.URL, "postgres://") ||
		strings.HasPrefix(cfg.Database.URL, "postgresql://")

	var dialector gorm.Dialector
	if isPostgres {
		dialector = postgres.Open(cfg.Database.URL)
	} else {
		dialector = sqlite.Open(cfg.Database.URL)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
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

	if isPostgres {
		return db, nil
	}

	// WAL mode must be set first
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

	return db, nil
}

// LoadTokenManager loads the persisted JWT secret, generating and storing one
// on first boot
func LoadTokenManager(db *gorm.DB, zlog zerolog.Logger) (*auth.TokenManager, error) {
	var cfg models.Config
	err := db.First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		secret, genErr := auth.GenerateSecret()
		if genErr != nil {
			return nil, genErr
		}
		cfg = models.Config{JWTSecret: secret}
		if err := db.Create(&cfg).Error; err != nil {
			return nil, fmt.Errorf("failed to persist JWT secret: %w", err)
		}
		zlog.Info().Msg("Generated new JWT secret")
	} else if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	} else {
		zlog.Debug().Msg("Loaded JWT secret from database")
	}

	return auth.NewTokenManager(cfg.JWTSecret)
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() error {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	// Trailing-slash misses must reach the gate like any other request;
	// notFound redirects them for pages only.
	s.router.RedirectTrailingSlash = false

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	s.router.SetHTMLTemplate(tmpl)

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.HTTP.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Every request passes the access gate before reaching a handler,
	// including unmatched routes.
	s.router.Use(AccessGateMiddleware(s.policy, s.resolver, s.metrics, s.logger))

	// Excluded from the gate
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.StaticFS("/static", http.FS(staticFS()))

	// Pages
	s.router.GET("/", s.rootPage)
	s.router.GET("/sign-in", s.signInPage)
	s.router.POST("/sign-in", s.signInSubmit)
	s.router.GET("/sign-up", s.signUpPage)
	s.router.POST("/sign-up", s.signUpSubmit)
	s.router.POST("/sign-out", s.signOutSubmit)
	s.router.GET("/home", s.homePage)
	s.router.POST("/home/videos", s.homeUploadVideo)
	s.router.POST("/home/videos/:id/delete", s.homeDeleteVideo)
	s.router.GET("/social-share", s.socialSharePage)
	s.router.POST("/social-share", s.socialShareSubmit)

	api := s.router.Group("/api")
	{
		api.POST("/auth/sign-up", s.signUp)
		api.POST("/auth/sign-in", s.signIn)
		api.POST("/auth/sign-out", s.signOut)
		api.GET("/auth/me", s.getCurrentUser)

		api.GET("/videos", s.listVideos)
		api.GET("/videos/:id", s.getVideo)
		api.DELETE("/videos/:id", s.deleteVideo)
		api.POST("/video-upload", s.uploadVideo)
		api.POST("/image-upload", s.uploadImage)
	}

	s.router.NoRoute(s.notFound)

	return nil
}

// notFound answers requests the gate let through but no route matched. Page
// paths with a trailing slash are redirected to the canonical path; API paths
// never are.
func (s *Server) notFound(c *gin.Context) {
	requested := c.Request.URL.Path

	if s.policy.IsAPIPath(requested) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if len(requested) > 1 && strings.HasSuffix(requested, "/") {
		target := url.URL{Path: path.Clean(requested), RawQuery: c.Request.URL.RawQuery}
		status := http.StatusMovedPermanently
		if c.Request.Method != http.MethodGet {
			status = http.StatusTemporaryRedirect
		}
		c.Redirect(status, target.String())
		return
	}

	c.String(http.StatusNotFound, "404 page not found")
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
		"service":   "clipvault-api",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.config.HTTP.Addr

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Uploads of large videos need generous read/write timeouts
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if s.asynqClient != nil {
		if err := s.asynqClient.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq client")
		}
	}
	if s.asynqInspector != nil {
		if err := s.asynqInspector.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq inspector")
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		s.logger.Info().Msg("Closing database connection...")
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
