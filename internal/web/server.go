// Package web provides the browser-facing HTTP server.
//
// Endpoints:
//
//	GET  /                  →  chat page (embedded static assets)
//	GET  /events            →  SSE transcript stream (snapshot replay + live)
//	POST /api/chat          →  send one user message
//	POST /api/chapter       →  switch the pinned chapter
//	GET  /api/library       →  corpus listing for the picker
//	POST /api/panel/close   →  hide the image panel
//	POST /api/panel/reopen  →  restore the last shown image
//	GET  /health            →  liveness probe
//	GET  /ready             →  readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - events.go: SSE transcript stream
//   - chat.go: message and chapter endpoints
//   - library.go: corpus listing
//   - panel.go: image panel endpoints
//   - health.go: health check endpoints (/health, /ready)
//   - response.go: JSON response helpers
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/zadachnik/mathbot/internal/chat"
	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/log"
	"github.com/zadachnik/mathbot/internal/transcript"
	"github.com/zadachnik/mathbot/internal/web/static"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the MathBot UI.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health  *HealthHandler
	chat    *ChatHandler
	events  *EventsHandler
	library *LibraryHandler
	panel   *PanelHandler
}

// ServerConfig contains the dependencies a Server is wired with.
type ServerConfig struct {
	Pipeline   *chat.Pipeline
	Transcript *transcript.Log
	Corpus     *corpus.Store
	Logger     log.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Transcript == nil {
		return nil, errors.New("transcript log is required")
	}
	if cfg.Corpus == nil {
		return nil, errors.New("corpus store is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  cfg.Logger,
		health:  NewHealthHandler(cfg.Corpus, cfg.Logger),
		chat:    NewChatHandler(cfg.Pipeline, cfg.Logger),
		events:  NewEventsHandler(cfg.Transcript, cfg.Logger),
		library: NewLibraryHandler(cfg.Corpus, cfg.Logger),
		panel:   NewPanelHandler(cfg.Transcript, cfg.Logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.events.RegisterRoutes(mux)
	s.library.RegisterRoutes(mux)
	s.panel.RegisterRoutes(mux)

	mux.Handle("GET /{$}", static.Index())
	mux.Handle("GET /static/", http.StripPrefix("/static/", static.Handler()))

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		IdleTimeout:       IdleTimeout,
		// No WriteTimeout: /events holds its response open for the life
		// of the page.
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
