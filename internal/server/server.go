// Package server exposes the pseudonymization engine over HTTP: an
// authenticated internal surface that handles real text, an operator
// surface for preview and consent-gated extraction, and health probes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/regulens/pseudonymd/internal/logger"
	"github.com/regulens/pseudonymd/pkg/config"
)

// Server provides the HTTP API with graceful shutdown.
type Server struct {
	server       *http.Server
	config       config.ServerConfig
	shutdownOnce sync.Once
}

// NewServer creates the API server in a stopped state. Call Start() to
// begin serving requests.
func NewServer(cfg config.ServerConfig, h *Handler) *Server {
	router := NewRouter(h, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{server: server, config: cfg}
}

// Start runs the server and blocks until the context is cancelled or
// an error occurs. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Fresh context: the cancelled one would abort shutdown immediately
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
