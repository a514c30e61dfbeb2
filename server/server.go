// Package server wires the HTTP surface: routing, middleware and listeners.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Timeouts configures an http.Server
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Server represents one HTTP listener
type Server struct {
	name   string
	server *http.Server
	logger *zap.Logger
}

// New creates a server named name serving handler on addr
func New(name, addr string, handler http.Handler, timeouts Timeouts, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		name: name,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       timeouts.Read,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      timeouts.Write,
			IdleTimeout:       timeouts.Idle,
			ErrorLog:          zap.NewStdLog(logger),
		},
		logger: logger,
	}
}

// Start listens on the configured address and serves until Shutdown.
// A clean shutdown returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server",
		zap.String("listener", s.name),
		zap.String("addr", ln.Addr().String()))

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", zap.String("listener", s.name))
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Name returns the listener name used in logs
func (s *Server) Name() string {
	return s.name
}
