// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	capabilityHTTP "github.com/allisson/missionhub/internal/capability/http"
	"github.com/allisson/missionhub/internal/eventlog"
	"github.com/allisson/missionhub/internal/metrics"
	outboundDomain "github.com/allisson/missionhub/internal/outbound/domain"
)

// QueueStats exposes outbound delivery counters.
type QueueStats interface {
	Stats() outboundDomain.Stats
}

// RouterConfig holds the admin API options taken from configuration.
type RouterConfig struct {
	GinMode                 string
	AdminAPIToken           string
	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int
	CORSEnabled             bool
	CORSAllowOrigins        string

	// MeterProvider enables per-route HTTP metrics when set.
	MeterProvider    metric.MeterProvider
	MetricsNamespace string
}

// Server represents the admin HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger

	// memoryStore marks deployments without a database; readiness then skips the ping.
	memoryStore bool
}

// NewServer creates a new admin HTTP server. db may be nil when the hub runs on the
// in-memory store, see UseMemoryStore.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// UseMemoryStore reports the database component as "memory" instead of pinging it.
func (s *Server) UseMemoryStore() {
	s.memoryStore = true
}

// SetupRouter configures the Gin router with all routes and middleware.
// Mutating routes are registered only when an admin token is configured.
func (s *Server) SetupRouter(
	cfg RouterConfig,
	grantHandler *capabilityHTTP.GrantHandler,
	eventLogHandler *eventlog.Handler,
	queueStats QueueStats,
) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cfg.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MeterProvider, cfg.MetricsNamespace))
	}

	if corsMiddleware := adminCORS(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	// Read-only routes require the admin token too when one is configured.
	if cfg.AdminAPIToken != "" {
		v1.Use(AdminTokenMiddleware(cfg.AdminAPIToken, s.logger))
	}

	v1.GET("/event-log", eventLogHandler.ListHandler)
	if queueStats != nil {
		v1.GET("/outbound/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, queueStats.Stats())
		})
	}

	identities := v1.Group("/identities/:identity/capabilities")
	identities.GET("", grantHandler.ListHandler)

	if cfg.AdminAPIToken != "" {
		identities.PUT("/:capability", grantHandler.GrantCapabilityHandler)
		identities.DELETE("/:capability", grantHandler.RevokeCapabilityHandler)
	} else {
		s.logger.Warn("ADMIN_API_TOKEN not set - capability grant routes are disabled")
	}

	s.router = router
}

// GetHandler returns the configured router, for tests.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured, call SetupRouter first")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
// GET /health
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the storage backend is reachable.
// GET /ready
func (s *Server) readinessHandler(c *gin.Context) {
	if s.memoryStore {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"components": gin.H{"database": "memory"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.db.PingContext(ctx) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
