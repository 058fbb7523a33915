package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ValentinKolb/dDoc/lib/store"
	"github.com/ValentinKolb/dDoc/server/auth"
	"github.com/ValentinKolb/dDoc/server/common"
	vm "github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("http")

// Server exposes a Database over HTTP.
//
// Thread-safety: Handlers run concurrently; all synchronization is done by
// the database.
type Server struct {
	db     *store.Database
	config common.ServerConfig
	engine *gin.Engine
	srv    *http.Server
}

// NewServer creates the HTTP server for db. Requests to the data routes
// require Basic auth unless the config is insecure and has no users.
func NewServer(db *store.Database, config common.ServerConfig) *Server {
	if config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		db:     db,
		config: config,
		engine: gin.New(),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:              config.Endpoint,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes registers all middleware and handlers
func (s *Server) routes() {
	s.engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		Logger.Errorf("panic while handling %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))
	if s.config.LogLevel == "debug" {
		s.engine.Use(loggerMiddleware())
	}

	// unauthenticated operational endpoints
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", s.metrics)

	api := s.engine.Group("/")
	if len(s.config.Users) > 0 || !s.config.Insecure {
		api.Use(auth.NewAuthenticator(s.config.Users).Middleware())
	} else {
		Logger.Warningf("authentication is disabled")
	}

	api.GET("/info", s.info)

	api.GET("/collections", s.listCollections)
	api.POST("/collections/:name", s.createCollection)
	api.DELETE("/collections/:name", s.dropCollection)

	api.POST("/collections/:name/documents", s.insertDocument)
	api.GET("/collections/:name/documents", s.listDocuments)
	api.GET("/collections/:name/documents/:id", s.getDocument)
	api.PUT("/collections/:name/documents/:id", s.updateDocument)
	api.DELETE("/collections/:name/documents/:id", s.deleteDocument)
}

// Handler returns the http.Handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves requests until Shutdown is called.
// It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	Logger.Infof("starting HTTP server on %s", s.config.Endpoint)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones to finish
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Infof("shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}

// metrics writes the store and process metrics in Prometheus text format
func (s *Server) metrics(c *gin.Context) {
	c.Header("Content-Type", "text/plain; version=0.0.4")
	c.Status(http.StatusOK)
	s.db.WritePrometheus(c.Writer)
	vm.WriteProcessMetrics(c.Writer)
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Log the request
		duration := time.Since(start)
		Logger.Debugf("%s %s => %d took %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), duration)
	}
}
