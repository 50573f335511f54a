// Package http serves the rendered network page for live preview. The page is
// re-rendered on demand, and optionally whenever the edge or compound file
// changes on disk.
package http

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/vizcrn/internal/infrastructure/monitoring/prometheus"
)

// RenderFunc regenerates the page file.
type RenderFunc func(ctx context.Context) error

// Config holds server parameters.
type Config struct {
	Addr         string
	PagePath     string
	Version      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8050"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// RenderStatus describes the most recent render attempt.
type RenderStatus struct {
	Renders    int       `json:"renders"`
	LastRender time.Time `json:"last_render"`
	LastError  string    `json:"last_error,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string       `json:"status"`
	Version string       `json:"version"`
	Uptime  string       `json:"uptime"`
	Render  RenderStatus `json:"render"`
}

// Server is the preview HTTP server.
type Server struct {
	cfg     Config
	engine  *gin.Engine
	srv     *http.Server
	render  RenderFunc
	logger  logging.Logger
	startAt time.Time

	mu     sync.Mutex
	status RenderStatus
}

// NewServer builds the router. collector may be nil, in which case /metrics
// is not registered.
func NewServer(cfg Config, render RenderFunc, collector prometheus.MetricsCollector, logger logging.Logger) *Server {
	cfg.applyDefaults()
	s := &Server{
		cfg:     cfg,
		render:  render,
		logger:  logger.Named("http"),
		startAt: time.Now(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogging(s.logger, DefaultLoggingConfig()))

	engine.GET("/", s.page)
	engine.GET("/healthz", s.health)
	if collector != nil {
		engine.GET("/metrics", gin.WrapH(collector.Handler()))
	}
	s.engine = engine

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Rerender runs the render func and records the outcome. Concurrent calls
// are serialized.
func (s *Server) Rerender(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.render(ctx)
	s.status.Renders++
	s.status.LastRender = time.Now()
	if err != nil {
		s.status.LastError = err.Error()
		s.logger.Error("re-render failed", logging.Err(err))
		return err
	}
	s.status.LastError = ""
	s.logger.Info("page rendered", logging.String("path", s.cfg.PagePath), logging.Int("renders", s.status.Renders))
	return nil
}

// Status returns a copy of the render status.
func (s *Server) Status() RenderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start listens until Stop is called. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("preview server listening", logging.String("addr", s.cfg.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting at most 30s for open requests.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("preview server stopped")
	return nil
}

func (s *Server) page(c *gin.Context) {
	if _, err := os.Stat(s.cfg.PagePath); err != nil {
		st := s.Status()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      "page not rendered",
			"last_error": st.LastError,
		})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.File(s.cfg.PagePath)
}

func (s *Server) health(c *gin.Context) {
	st := s.Status()
	status := "ok"
	if st.LastError != "" {
		status = "degraded"
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:  status,
		Version: s.cfg.Version,
		Uptime:  time.Since(s.startAt).Truncate(time.Second).String(),
		Render:  st,
	})
}
