package server

import (
	"time"

	"callsync/internal/association"
	"callsync/internal/auth"
	"callsync/internal/cache"
	"callsync/internal/config"
	"callsync/internal/database"
	"callsync/internal/handlers"
	"callsync/internal/queue"
	"callsync/internal/stats"
	"callsync/internal/syncer"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Server represents the application server
type Server struct {
	echo        *echo.Echo
	db          *sqlx.DB
	store       *database.Store
	config      *config.Config
	logger      zerolog.Logger
	cache       *cache.Cache
	syncEngine  *syncer.Engine
	associator  *association.Engine
	queue       *queue.Queue
	stats       *stats.Service
	authManager *auth.Manager
}

// New creates a new server instance
func New(cfg *config.Config, db *sqlx.DB, store *database.Store, syncEngine *syncer.Engine, associator *association.Engine, q *queue.Queue, statsSvc *stats.Service, logger zerolog.Logger) *Server {
	return &Server{
		config:      cfg,
		db:          db,
		store:       store,
		logger:      logger,
		cache:       cache.New(),
		syncEngine:  syncEngine,
		associator:  associator,
		queue:       q,
		stats:       statsSvc,
		authManager: auth.NewManager(cfg),
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// API group with /api prefix
	api := s.echo.Group("/api")

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.db))
	s.echo.GET("/healthz/queue", handlers.QueueHealthHandler(s.queue))

	// API endpoints under /api prefix
	api.GET("/", handlers.RootHandler(s.config.Version))
	api.GET("/transcripts/search", handlers.SearchHandler(s.store, s.cache))
	api.GET("/transcripts/:id", handlers.GetTranscriptHandler(s.store))

	// Vendor webhook ingress, no auth: vendors can't carry our tokens.
	// Payloads are validated and deduplicated before they reach the queue.
	s.echo.POST("/webhooks/:platform", handlers.WebhookHandler(s.queue, s.stats, s.logger))

	// Admin endpoints require a session token
	api.POST("/admin/login", handlers.AdminLoginHandler(s.authManager))

	admin := api.Group("/admin", auth.Middleware(s.authManager))
	admin.POST("/logout", handlers.AdminLogoutHandler(s.authManager))
	admin.POST("/sync", handlers.SyncTriggerHandler(s.syncEngine, s.stats))
	admin.POST("/sync/call", handlers.SingleCallSyncHandler(s.syncEngine))
	admin.GET("/rules", handlers.ListRulesHandler(s.associator))
	admin.POST("/rules", handlers.AddRuleHandler(s.associator))
	admin.DELETE("/rules/:id", handlers.RemoveRuleHandler(s.associator))
	admin.GET("/stats", handlers.StatsHandler(s.stats))
	admin.POST("/transcripts/:id/reassociate", handlers.ReassociateHandler(s.associator, s.stats, s.cache))
	admin.POST("/backfill", handlers.TriggerBackfillHandler(s.config))
	admin.GET("/backfill/:jobName", handlers.GetBackfillStatusHandler(s.config))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}
