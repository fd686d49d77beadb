// Package server owns the listener lifecycle: bind, serve, and a
// signal-driven drain. The lifecycle runs Stopped -> Starting -> Listening
// -> Draining -> Stopped; bind failure is fatal and never retried.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"example.com/servedir/internal/config"
	"example.com/servedir/internal/logger"
)

// Server binds one (root, port) pair to one handler for its whole lifetime.
type Server struct {
	cfg     *config.Config
	log     *logger.Logger
	httpSrv *http.Server

	listener net.Listener
}

// New creates an unstarted Server.
func New(cfg *config.Config, lg *logger.Logger, handler http.Handler) *Server {
	return &Server{
		cfg: cfg,
		log: lg,
		httpSrv: &http.Server{
			Handler: handler,
		},
	}
}

// Start performs the Starting phase: it re-checks the root precondition and
// binds the configured port. A failure here is fatal to the process; no
// alternate port is tried.
func (s *Server) Start() error {
	info, err := os.Stat(s.cfg.Server.Root)
	if err != nil {
		return fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", s.cfg.Server.Root)
	}

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.listener = ln
	s.log.Diag.Info().
		Str("addr", ln.Addr().String()).
		Str("root", s.cfg.Server.Root).
		Msg("listening")
	return nil
}

// Addr reports the bound address. Valid only after Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then drains: the
// listener closes, in-flight requests run to completion within the
// configured shutdown timeout, and Serve returns nil on a clean drain.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.httpSrv.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		s.log.Diag.Info().Msg("shutdown signal received, draining")
		drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeoutDuration())
		defer cancel()
		if err := s.httpSrv.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("draining: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		s.log.Diag.Info().Msg("server stopped")
	}
	return err
}

// Run is Start followed by Serve.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.Serve(ctx)
}
