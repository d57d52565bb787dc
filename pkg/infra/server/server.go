// Package server provides an HTTP server wrapper around gin with graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursechat-io/coursechat/pkg/logger"
	httpopts "github.com/coursechat-io/coursechat/pkg/options/http"
)

// Server wraps a gin engine and an http.Server.
type Server struct {
	opts   *httpopts.Options
	engine *gin.Engine
	srv    *http.Server
}

// New creates a server with the given options and middlewares. Middlewares
// are applied in order before any route registration.
func New(opts *httpopts.Options, middlewares ...gin.HandlerFunc) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middlewares...)

	return &Server{
		opts:   opts,
		engine: engine,
		srv: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
	}
}

// Engine returns the underlying gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. Shutdown waits up to the configured shutdown timeout for in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed, closing", "error", err.Error())
		return s.srv.Close()
	}

	logger.Info("HTTP server stopped")
	return nil
}
