package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/logging"
	"github.com/muurk/hapcangw/internal/syncutil"
)

const (
	// readBufferSize bounds one read from a client
	readBufferSize = 512

	// acceptBackoff is the pause after a failed Accept
	acceptBackoff = 50 * time.Millisecond

	// shutdownTimeout bounds the wait for connection goroutines
	shutdownTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds one client write when none is configured
	DefaultWriteTimeout = 2 * time.Second
)

// Config holds the TCP server configuration
type Config struct {
	Addr         string        // host:port, e.g. ":1001"
	WriteTimeout time.Duration // per-frame write deadline, DefaultWriteTimeout when 0
}

// Server accepts HAPCAN clients over plain TCP and feeds them to the engine
type Server struct {
	config *Config
	engine *gateway.Engine

	listener    net.Listener
	wg          sync.WaitGroup
	mu          syncutil.Mutex
	activeConns map[string]net.Conn
}

// New creates a new Server instance
func New(config *Config, engine *gateway.Engine) *Server {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	return &Server{
		config:      config,
		engine:      engine,
		activeConns: make(map[string]net.Conn),
	}
}

// Listen binds the listening socket. Serve calls it when needed.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener

	logging.Info("Listening for HAPCAN clients",
		zap.String("addr", listener.Addr().String()),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts clients until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.acceptConnections()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// acceptConnections accepts and handles incoming connections
func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener closed during shutdown
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection owns one client: it claims a slot and runs the
// reader until the connection fails.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	if tcp, ok := conn.(*net.TCPConn); ok {
		// frames are tiny; do not hold them back
		_ = tcp.SetNoDelay(true)
	}

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
	}()

	slot, err := s.engine.Connect(&connTransport{conn: conn, writeTimeout: s.config.WriteTimeout})
	if err != nil {
		// table full: the deferred close refuses the client
		return
	}
	defer s.engine.Disconnect(slot)

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 && s.engine.HandleBytes(slot, buf[:n]) == 0 {
			// partial frame or noise
			logging.LogRawBytes("Client bytes pending", buf[:n])
		}
		if err != nil {
			logging.Debug("Client read ended",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}
	}
}

// Shutdown stops accepting, closes every client and waits for their
// goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down TCP server...")

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All TCP connections closed gracefully")
		return nil
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	}
}

// GetActiveConnections returns the number of connected clients
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// connTransport adapts a net.Conn to gateway.Transport
type connTransport struct {
	conn         net.Conn
	writeTimeout time.Duration
}

func (t *connTransport) Write(p []byte) (int, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return 0, err
	}
	return t.conn.Write(p)
}

func (t *connTransport) Close() error {
	return t.conn.Close()
}

func (t *connTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
