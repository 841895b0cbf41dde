// Package supervisor accepts connections on the listening socket, spawns a
// client-service task per accept, and drives the signal-triggered orderly
// shutdown sequence: stop accepting, half-close every client, wait for the
// drain, then let the caller tear down the engine.
package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"code.mazewar.dev/mazewar/internal/clientsvc"
	"code.mazewar.dev/mazewar/internal/engine"
	"code.mazewar.dev/mazewar/internal/wire"
)

// Supervisor owns the listening socket for the lifetime of one server run.
type Supervisor struct {
	engine *engine.Engine
	logger *slog.Logger

	mu           sync.Mutex
	listener     net.Listener
	shutdownOnce sync.Once
}

// New returns a Supervisor driving eng. A nil logger falls back to the
// default slog logger.
func New(eng *engine.Engine, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{engine: eng, logger: logger}
}

// ListenAndServe binds addr and accepts connections until the listener is
// closed by Shutdown, by a SIGINT/SIGTERM, or by an unrecoverable accept
// error. A clean shutdown returns nil.
//
// Go's runtime does not deliver SIGPIPE to the process for socket writes
// the way a C program's default disposition does; a write to a departed
// peer simply returns an error at the call site. Only the two signals that
// need explicit handling — initiate shutdown — are installed here.
func (s *Supervisor) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("supervisor: listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; ok {
			s.logger.Info("received shutdown signal")
			s.Shutdown()
		}
	}()

	s.logger.Info("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				// Blocks until the Shutdown that closed the listener has
				// drained every client session.
				s.Shutdown()
				return nil
			}
			s.logger.Error("accept failed, shutting down", "error", err)
			s.Shutdown()
			return fmt.Errorf("supervisor: accept: %w", err)
		}
		s.logger.Info("accepted connection", "remote", conn.RemoteAddr().String())
		go clientsvc.Serve(wire.NewConn(conn), s.engine.Registry, s.engine.Table)
	}
}

// Shutdown stops accepting new connections, half-closes every registered
// client so its service task observes EOF, and blocks until all of them
// have drained. Safe to call more than once or concurrently; only the
// first call has effect.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		ln := s.listener
		s.mu.Unlock()
		if ln != nil {
			ln.Close()
		}
		s.engine.Registry.ShutdownAll()
		s.engine.Registry.WaitForEmpty()
		s.logger.Info("all client sessions drained")
	})
}
