package http

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/SuburbROI-Intelligence/internal/config"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/logging"
)

// Server runs the scenario API.
type Server struct {
	srv             *http.Server
	router          *gin.Engine
	port            int
	shutdownTimeout time.Duration
	logger          logging.Logger
	onStop          []func()
}

// NewServer builds the router from rc and binds it to cfg.Port.
func NewServer(cfg config.ServerConfig, rc RouterConfig) *Server {
	router := NewRouter(rc)
	logger := rc.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	s := &Server{
		router:          router,
		port:            cfg.Port,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
	if stopper, ok := rc.RateLimiter.(interface{ Stop() }); ok {
		s.onStop = append(s.onStop, stopper.Stop)
	}
	return s
}

// Start blocks serving requests.  A graceful Stop makes it return nil.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", logging.Int("port", s.port))
	if err := s.srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	defer func() {
		for _, fn := range s.onStop {
			fn()
		}
	}()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}
