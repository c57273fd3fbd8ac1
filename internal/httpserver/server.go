package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/partdetect/internal/logger"
)

// Server wraps the echo instance shared by all route groups.
type Server struct {
	Echo *echo.Echo

	config *Config
	log    logger.Logger
	extra  []echo.MiddlewareFunc
	wg     sync.WaitGroup
	errCh  chan error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for lifecycle and request logs.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(mw ...echo.MiddlewareFunc) Option {
	return func(s *Server) {
		s.extra = append(s.extra, mw...)
	}
}

// New creates a Server with panic recovery, request IDs and request
// logging installed. Routes are registered by the caller on s.Echo.
func New(cfg *Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(io.Discard) // request logs go through RequestLogger
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout
	e.Server.IdleTimeout = cfg.IdleTimeout

	s := &Server{
		Echo:   e,
		config: cfg,
		log:    GetLogger(),
		errCh:  make(chan error, 1),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	// Recover sits inside the request logger so panics are logged as 500s.
	e.Pre(echomw.RequestID())
	e.Use(RequestLogger(s.log))
	e.Use(echomw.Recover())
	e.Use(s.extra...)
	return s
}

// Start serves in a background goroutine. A listener failure is reported
// on Errors.
func (s *Server) Start() {
	addr := s.config.Address()
	s.log.Info("starting HTTP server", logger.String("address", addr))

	s.wg.Go(func() {
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped", logger.Error(err))
			s.errCh <- fmt.Errorf("server error: %w", err)
		}
	})
}

// Errors delivers at most one listener failure.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.Echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.wg.Wait()

	s.log.Info("server shutdown complete")
	return nil
}
