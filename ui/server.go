package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"cmskit/internal/container"
)

// maxUploadBytes bounds multipart bodies kept in memory
const maxUploadBytes = 64 << 20

// Server represents the HTTP API for cmskit
type Server struct {
	router *gin.Engine
	c      *container.Container
	logger *zap.Logger
	jobs   *semaphore.Weighted
	http   *http.Server
}

// NewServer creates the server and registers every route
func NewServer(c *container.Container) *Server {
	maxJobs := c.Config.Server.MaxJobs
	if maxJobs < 1 {
		maxJobs = 1
	}
	s := &Server{
		router: gin.New(),
		c:      c,
		logger: c.Logger.Named("http"),
		jobs:   semaphore.NewWeighted(maxJobs),
	}
	s.router.MaxMultipartMemory = maxUploadBytes
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/credential", s.handleGetCredential)
	api.PUT("/credential", s.handleSaveCredential)
	api.DELETE("/credential", s.handleResetCredential)

	api.GET("/projects", s.handleProjects)
	api.GET("/modes", s.handleModes)
	api.GET("/sources", s.handleSources)

	jobs := api.Group("", runID(), s.limitJobs())
	jobs.POST("/compare", s.handleCompare)
	jobs.POST("/import", s.handleImport)
	jobs.POST("/export", s.handleExport)
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
