package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"terabox-extractor/internal/batch"
	"terabox-extractor/internal/bot"
	"terabox-extractor/internal/monitor"
	"terabox-extractor/internal/ratelimit"
	"terabox-extractor/internal/registry"
	"terabox-extractor/pkg/models"
)

// ServiceName is reported by the health endpoints
const ServiceName = "terabox-extractor"

// MaxBatchSize caps the number of URLs accepted by one batch request
const MaxBatchSize = 50

// Server represents the API server
type Server struct {
	config       *models.Config
	resolver     models.Resolver
	batch        *batch.BatchManager
	monitor      *monitor.Monitor
	rateLimitMgr *ratelimit.Manager
	bot          *bot.Bot
	router       *gin.Engine
	httpServer   *http.Server
	listener     net.Listener
	logger       zerolog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithBot serves b's webhook route
func WithBot(b *bot.Bot) Option {
	return func(s *Server) {
		s.bot = b
	}
}

// NewServer creates a new API server
func NewServer(cfg *models.Config, resolver models.Resolver, mon *monitor.Monitor, logger zerolog.Logger, opts ...Option) *Server {
	// Set Gin mode
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		resolver: resolver,
		batch:    batch.NewBatchManager(resolver, cfg.Batch.MaxConcurrent, logger),
		monitor:  mon,
		rateLimitMgr: ratelimit.NewManager(ratelimit.Config{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			MaxConcurrent:     cfg.RateLimit.MaxConcurrent,
			WhitelistedIPs:    cfg.RateLimit.WhitelistedIPs,
		}, logger),
		logger: logger.With().Str("component", "server").Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()

	router.Use(s.recoveryMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(s.loggingMiddleware())
	router.Use(corsMiddleware())

	s.setupRoutes(router)
	return router
}

// setupRoutes sets up the API routes
func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/", s.healthCheck)
	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	router.POST(bot.WebhookPathPrefix+":token", s.webhook)

	// Apply rate limiting to all API routes
	api := router.Group("/api")
	api.Use(s.rateLimitMgr.Middleware())

	v1 := api.Group("/v1")
	{
		v1.GET("/resolve", s.resolveQuery)
		v1.POST("/resolve", s.resolveBody)
		v1.POST("/batch", s.resolveBatch)
		v1.GET("/domains", s.listDomains)
		v1.GET("/system", s.systemStats)
	}
}

// Start listens on the configured address and serves in the background
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}

	s.rateLimitMgr.Start(ctx)

	go func() {
		s.logger.Info().Str("address", listener.Addr().String()).Msg("Starting API server")
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Error serving HTTP")
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops the API server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info().Msg("Stopping API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down server")
		return err
	}

	s.logger.Info().Msg("API server stopped")
	return nil
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return s.Stop()
}

// Health check handler
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"bot":       ServiceName,
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) resolveQuery(c *gin.Context) {
	rawURL := strings.TrimSpace(c.Query("url"))
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	s.respondResult(c, s.resolver.Resolve(c.Request.Context(), rawURL))
}

func (s *Server) resolveBody(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.respondResult(c, s.resolver.Resolve(c.Request.Context(), req.URL))
}

func (s *Server) respondResult(c *gin.Context, result *models.VideoResult) {
	if !result.Playable() {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) resolveBatch(c *gin.Context) {
	var req struct {
		URLs []string `json:"urls" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.URLs) > MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("at most %d urls per batch", MaxBatchSize),
		})
		return
	}

	job := s.batch.Run(c.Request.Context(), req.URLs, nil)
	c.JSON(http.StatusOK, job)
}

func (s *Server) listDomains(c *gin.Context) {
	domains := registry.Domains()
	c.JSON(http.StatusOK, gin.H{
		"domains": domains,
		"total":   len(domains),
	})
}

func (s *Server) systemStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.HealthCheck())
}

func (s *Server) webhook(c *gin.Context) {
	if s.bot == nil || !s.bot.WebhookMode() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if !s.bot.ValidToken(c.Param("token")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.bot.Dispatch(c.Request.Context(), &update)
	c.Status(http.StatusOK)
}
