// Package server assembles the HTTP surface of the relay: the chi router
// with its middleware stack and the http.Server lifecycle.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teilomillet/kotoba/config"
	"github.com/teilomillet/kotoba/errors"
	"github.com/teilomillet/kotoba/server/handlers"
	"github.com/teilomillet/kotoba/server/metrics"
	"github.com/teilomillet/kotoba/server/middleware"
	"go.uber.org/zap"
)

// WebhookPath is where LINE delivers webhook events.
const WebhookPath = "/webhook"

// NewRouter builds the relay's routes:
//
//	GET  /          liveness check, empty 200
//	POST /webhook   LINE webhook deliveries
//	GET  <metrics>  Prometheus metrics, when enabled
func NewRouter(cfg *config.Config, webhook http.Handler, logger *zap.Logger, m *metrics.Metrics) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if m != nil {
		r.Use(middleware.PrometheusMetrics(m))
	}
	r.Use(middleware.RequestTimer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.ErrorWithType(w, "Not found", errors.ValidationError, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errors.ErrorWithType(w, "Method not allowed", errors.ValidationError, http.StatusMethodNotAllowed)
	})

	r.Get("/", handlers.Health)
	r.Post(WebhookPath, webhook.ServeHTTP)

	if m != nil && cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, m.Handler())
	}

	return r
}

// Server runs the HTTP server until its context is cancelled.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *zap.Logger
}

// NewServer creates a server for handler using the timeouts in cfg.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Start listens on the configured port and blocks until ctx is cancelled
// or the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Start on an existing listener. On cancellation in-flight
// webhooks get up to ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Server started", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server", zap.Duration("timeout", s.cfg.ShutdownTimeout))
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil

	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}
