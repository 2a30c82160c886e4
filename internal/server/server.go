// Package server exposes the extractor over HTTP: batch JSON, live
// streams over SSE and WebSocket, and ZIP or PDF downloads.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	pdfpages "github.com/porticus-lab/go-pdf-pages"
	"github.com/porticus-lab/go-pdf-pages/internal/common"
)

// Extractor is the part of [pdfpages.Extractor] the server uses.
type Extractor interface {
	Extract(ctx context.Context, input string) (*pdfpages.Result, error)
	Stream(ctx context.Context, input string, emit func(pdfpages.Event)) (*pdfpages.Result, error)
}

// Server manages the HTTP server and routes
type Server struct {
	extractor Extractor
	config    *common.Config
	logger    arbor.ILogger
	router    *http.ServeMux
	server    *http.Server
}

// New creates a new HTTP server backed by extractor
func New(extractor Extractor, config *common.Config, logger arbor.ILogger) *Server {
	s := &Server{
		extractor: extractor,
		config:    config,
		logger:    logger,
	}

	s.router = s.setupRoutes()

	// Extractions scroll a live viewer for minutes, so writes are not
	// bounded here; clients cancel by disconnecting.
	s.server = &http.Server{
		Addr:         s.addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withMiddleware(s.router)
}

func (s *Server) addr() string {
	return fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.addr()).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
