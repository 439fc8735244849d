// Package proxy is the HTTP Router (C8): it wires the fixed route table to
// the C4 (schema) → C3 (decorator) → C2 (auth) → C6 (upstream) → C5
// (rewriter) pipeline, guarded by the local API key middleware and the
// Admission Controller.
package proxy

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/admission"
	"github.com/kalehub/claude-relay/internal/auth"
	"github.com/kalehub/claude-relay/internal/configwatch"
	"github.com/kalehub/claude-relay/internal/telemetry"
	"github.com/kalehub/claude-relay/internal/upstream"
)

// Server holds every long-lived dependency the handlers need.
type Server struct {
	engine *gin.Engine

	tokens    *auth.TokenManager
	admission *admission.Controller
	watcher   *configwatch.Watcher
	client    *upstream.Client
	sink      telemetry.Sink

	cacheMessageCount int
}

// Options configures a new Server.
type Options struct {
	Tokens            *auth.TokenManager
	Admission         *admission.Controller
	Watcher           *configwatch.Watcher
	Client            *upstream.Client
	Sink              telemetry.Sink
	CacheMessageCount int
	Debug             bool
}

// New builds the gin.Engine and registers the fixed route table.
func New(opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		engine:            gin.New(),
		tokens:            opts.Tokens,
		admission:         opts.Admission,
		watcher:           opts.Watcher,
		client:            opts.Client,
		sink:              opts.Sink,
		cacheMessageCount: opts.CacheMessageCount,
	}
	s.engine.Use(ginLogger(), gin.Recovery(), corsMiddleware())
	s.registerRoutes()
	return s
}

// Engine exposes the underlying http.Handler for the listener in main.
func (s *Server) Engine() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/v1")
	v1.Use(s.requireLocalAPIKey())
	v1.GET("/models", s.handleModels)
	v1.POST("/chat/completions", s.handleChatCompletions)
	v1.POST("/responses", s.handleResponses)
	v1.POST("/messages", s.handleMessages)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("proxy request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, x-api-key")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
