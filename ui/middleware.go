package ui

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cmskit/domain/core"
	"cmskit/internal/errors"
)

// RunIDHeader lets a client pick the run ID of a job; it is echoed back
const RunIDHeader = "X-Run-ID"

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields...)
			return
		}
		s.logger.Debug("request", fields...)
	}
}

// runID attaches the client's run ID, or a new one, to the request context
func runID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := core.NewRunID()
		if raw := c.GetHeader(RunIDHeader); raw != "" {
			parsed, err := core.ParseRunID(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"error": err.Error(),
					"code":  errors.CodeInvalidInput,
				})
				return
			}
			id = parsed
		}
		c.Request = c.Request.WithContext(core.WithRunID(c.Request.Context(), id))
		c.Header(RunIDHeader, id.String())
		c.Next()
	}
}

// limitJobs holds one semaphore slot for the duration of a heavy request.
// Requests queue until a slot frees or the client goes away.
func (s *Server) limitJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.jobs.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "server busy",
				"code":  "BUSY",
			})
			return
		}
		defer s.jobs.Release(1)
		c.Next()
	}
}

// statusFor maps an error code to an HTTP status
func statusFor(err error) int {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound, errors.CodeEmptyResult:
		return http.StatusNotFound
	case errors.CodeSpreadsheet:
		return http.StatusUnprocessableEntity
	case errors.CodeExternalService, errors.CodeMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	if !errors.IsAppError(err) && statusFor(err) == http.StatusInternalServerError {
		s.logger.Error("unclassified error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(statusFor(err), gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
