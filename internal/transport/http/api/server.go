// Package apihttp provides the HTTP surface consumed by the landing pages:
// lead capture and the funnel ROI calculator endpoints.
package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leadcore/internal/logger"
)

// Server hosts the /api/v1 routes.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server dependencies.
type ServerConfig struct {
	Addr    string
	Relay   LeadRelay
	Presets PresetSource
}

// NewServer builds the HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Relay == nil && cfg.Presets == nil {
		return nil, errors.New("api http server requires a relay or preset source")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8788"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiRouter := NewRouter(cfg.Relay, cfg.Presets)
	apiRouter.Register(router.Group("/api/v1"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger traces inbound calls for operator visibility.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
