// Package server wires the HTTP API around the engine: routing, middleware,
// and graceful lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/graphein/graphein"
	"github.com/graphein/graphein/pkg/config"
	"github.com/graphein/graphein/pkg/server/handlers"
	"github.com/graphein/graphein/pkg/telemetry"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server hosts the HTTP API.
type Server struct {
	cfg    *config.Config
	svc    graphein.Service
	logger *slog.Logger

	router *gin.Engine
	http   *http.Server
}

// New builds an unstarted server around the given engine.
func New(cfg *config.Config, svc graphein.Service, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, svc: svc, logger: logger}
}

// Setup constructs the router. Exposed separately from Start so tests can
// drive the handler chain through httptest without binding a port.
func (s *Server) Setup() *gin.Engine {
	switch s.cfg.Server.Mode {
	case gin.DebugMode:
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware())
	router.Use(s.accessLogMiddleware())

	s.setupRoutes(router)
	s.router = router
	return router
}

func (s *Server) setupRoutes(router *gin.Engine) {
	health := &handlers.Health{Service: s.svc}
	router.GET("/health", health.Check)
	router.GET("/ready", health.Ready)
	router.GET("/live", health.Live)

	rag := &handlers.RAG{Service: s.svc, Logger: s.logger}
	router.POST("/rag/ingest", rag.Ingest)
	router.GET("/rag/search", rag.Search)
	router.DELETE("/rag/documents/:id", rag.DeleteDocument)

	kg := &handlers.KG{Service: s.svc, Logger: s.logger}
	router.GET("/kg/query", kg.Query)
	router.GET("/kg/snapshot", kg.Snapshot)
	router.GET("/index/info", kg.IndexInfo)
}

// Start binds the listen address and serves until Stop or a fatal error.
func (s *Server) Start() error {
	if s.router == nil {
		s.Setup()
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info("http server listening", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}

// requestIDMiddleware assigns each request an ID, echoes it in the response,
// and threads it through the context so error telemetry can correlate logs.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(telemetry.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}
