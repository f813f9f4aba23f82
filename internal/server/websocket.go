package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/logging"
	"github.com/muurk/hapcangw/internal/syncutil"
	"github.com/muurk/hapcangw/internal/version"
)

const (
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// StatusPath serves the engine counters as JSON
	StatusPath = "/status"
)

// WebSocketConfig holds the WebSocket listener configuration
type WebSocketConfig struct {
	Addr         string // e.g. ":8080"
	Path         string // e.g. "/ws"
	WriteTimeout time.Duration
	BusName      string // reported by the status endpoint
}

// Status is the document served at StatusPath
type Status struct {
	Version version.Info  `json:"version"`
	Bus     string        `json:"bus"`
	Uptime  string        `json:"uptime"`
	Stats   gateway.Stats `json:"stats"`
}

// WebSocketServer carries the HAPCAN byte stream in binary WebSocket
// messages, for browser and other HTTP-only clients.
type WebSocketServer struct {
	config   *WebSocketConfig
	engine   *gateway.Engine
	upgrader websocket.Upgrader
	started  time.Time

	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup

	mu           syncutil.Mutex
	activeConns  map[*websocket.Conn]struct{}
	shuttingDown bool
}

// NewWebSocketServer creates a WebSocket listener bound to engine
func NewWebSocketServer(config *WebSocketConfig, engine *gateway.Engine) *WebSocketServer {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	s := &WebSocketServer{
		config:      config,
		engine:      engine,
		started:     time.Now(),
		activeConns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // the TCP port is unauthenticated too
			},
		},
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes: the WebSocket endpoint and StatusPath.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	mux.HandleFunc(StatusPath, s.handleStatus)
	return mux
}

// Listen binds the HTTP socket. Serve calls it when needed.
func (s *WebSocketServer) Listen() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener

	logging.Info("Listening for WebSocket clients",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", s.config.Path),
	)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *WebSocketServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *WebSocketServer) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the HTTP server and closes hijacked WebSocket connections.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down WebSocket server...")

	// http.Server does not track hijacked connections; closing them ends
	// the readers, which then release their slots. Upgrades that finish
	// after this point are turned away, so wg only grows before Wait.
	s.mu.Lock()
	s.shuttingDown = true
	for conn := range s.activeConns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("WebSocket shutdown timeout, forcing close")
		return ctx.Err()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleWebSocket upgrades the request and runs the client reader
func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	if !s.track(conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.activeConns, conn)
		s.mu.Unlock()
	}()

	t := &wsTransport{conn: conn, writeTimeout: s.config.WriteTimeout}
	slot, err := s.engine.Connect(t)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "gateway full"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer func() {
		s.engine.Disconnect(slot)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go t.pingLoop(stop)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("WebSocket closed unexpectedly",
					zap.String("remote_addr", t.RemoteAddr()),
					zap.Error(err),
				)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			logging.Debug("Ignoring non-binary WebSocket message",
				zap.String("remote_addr", t.RemoteAddr()),
				zap.Int("type", msgType),
			)
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		s.engine.HandleBytes(slot, data)
	}
}

// track registers conn for Shutdown. It reports false once Shutdown has
// started.
func (s *WebSocketServer) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.wg.Add(1)
	s.activeConns[conn] = struct{}{}
	return true
}

// handleStatus serves the engine counters
func (s *WebSocketServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := Status{
		Version: version.Get(),
		Bus:     s.config.BusName,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Stats:   s.engine.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logging.Warn("Failed to write status", zap.Error(err))
	}
}

// wsTransport adapts a WebSocket connection to gateway.Transport. Every
// Write is one binary message; mu keeps pings and frames from interleaving.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           syncutil.Mutex
}

func (t *wsTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return 0, err
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// pingLoop keeps idle clients alive until stop is closed
func (t *wsTransport) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pongWait/10))
			t.mu.Unlock()
			if err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
