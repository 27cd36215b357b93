package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"api-boilerplate/internal/config"
	"api-boilerplate/internal/http/docs"
	"api-boilerplate/internal/http/middleware"
	"api-boilerplate/internal/router"
)

const (
	Title   = "API Boilerplate"
	Version = "1.0.0"
)

// NewEngine builds the gin engine with the middleware chain, every registered
// app module and the API docs. It returns the mounted routes.
func NewEngine(cfg config.Config, deps *router.Deps) (*gin.Engine, []router.Route) {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.AccessLog(logger),
		middleware.Recovery(logger),
		middleware.ErrorHandler(logger),
		middleware.CORS(cfg.CORS),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})

	routes := router.Mount(engine, deps)
	docs.Register(engine, Title, Version, routes)
	return engine, routes
}

// Server wraps http.Server with the shutdown sequence used by the serve command.
type Server struct {
	srv    *http.Server
	logger logrus.FieldLogger
}

func NewServer(addr string, handler http.Handler, logger logrus.FieldLogger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down...")
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnf("http shutdown: %v", err)
		return err
	}
	return nil
}
