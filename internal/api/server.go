package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mcoot/draftroom/internal/config"
)

// Server serves the REST, event stream and websocket routes on one listener
type Server struct {
	server          *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewServer creates a new API server. A zero port binds any free port.
func NewServer(handler http.Handler, cfg config.ServerConfig, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "http"))

	return &Server{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			// Event streams and websockets clear their own write deadline
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		ready:           make(chan struct{}),
	}
}

// OnShutdown registers fn to run when shutdown begins.
// http.Server does not track hijacked connections, so websocket owners close theirs here.
func (s *Server) OnShutdown(fn func()) {
	s.server.RegisterOnShutdown(fn)
}

// Run serves until ctx is cancelled, then drains in-flight requests
// for up to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))

	served := make(chan error, 1)
	go func() { served <- s.server.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	<-served

	s.logger.Info("HTTP server stopped")
	return nil
}

// Ready is closed once Run has bound its listener
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address once listening, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}
