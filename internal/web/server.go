// Package web serves the tracker page, its JSON API and the operational
// endpoints over echo.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"application-tracker/internal/common/errors"
	"application-tracker/internal/common/logger"
	"application-tracker/internal/common/observability"
	"application-tracker/internal/tracker/lookup"
	"application-tracker/internal/tracker/session"
)

// Searcher runs one lookup.
type Searcher interface {
	Search(ctx context.Context, q lookup.Query) (*lookup.Result, error)
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type ServerDependencies struct {
	Logger        logger.Logger
	Searcher      Searcher
	Sessions      *session.Store
	Observability *observability.Observability
	// ReadyChecks are run by /ready, keyed by dependency name.
	ReadyChecks map[string]ReadyCheck
}

type Server struct {
	config   *Config
	logger   logger.Logger
	searcher Searcher
	sessions *session.Store
	checks   map[string]ReadyCheck
	echo     *echo.Echo
	now      func() time.Time
}

func NewServer(deps ServerDependencies, config *Config) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewStore(30*time.Minute, log)
	}

	s := &Server{
		config:   config,
		logger:   log,
		searcher: deps.Searcher,
		sessions: sessions,
		checks:   deps.ReadyChecks,
		now:      time.Now,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsoniterSerializer{}
	e.Renderer = newTemplateRenderer()
	e.HTTPErrorHandler = errors.NewErrorHandler(log).HandleHTTPError
	e.Server.ReadTimeout = config.ReadTimeout
	e.Server.WriteTimeout = config.WriteTimeout

	e.Use(middleware.RequestID())
	e.Use(requestLogger(log, deps.Observability))
	e.Use(middleware.Recover())

	var searchMiddleware []echo.MiddlewareFunc
	if limiter := searchRateLimiter(config); limiter != nil {
		searchMiddleware = append(searchMiddleware, limiter)
	}

	e.GET("/", s.handleIndex)
	e.POST("/search", s.handleSearch, searchMiddleware...)
	e.GET("/api/v1/status", s.handleStatus, searchMiddleware...)

	e.GET("/health", s.handleHealth)
	e.GET("/ready", s.handleReady)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if config.DataFile != "" {
		e.GET("/applications.csv", s.handleDataset)
	}

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", map[string]interface{}{
		"address": s.config.Address,
	})
	if err := s.echo.Start(s.config.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
