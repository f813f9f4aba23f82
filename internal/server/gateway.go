package server

import (
	"context"
	"net"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/hapcangw/internal/canbus"
	"github.com/muurk/hapcangw/internal/config"
	"github.com/muurk/hapcangw/internal/discovery"
	"github.com/muurk/hapcangw/internal/gateway"
	"github.com/muurk/hapcangw/internal/hapcan"
	"github.com/muurk/hapcangw/internal/logging"
	"github.com/muurk/hapcangw/internal/version"
)

// Gateway wires the engine to its listeners, the bus and mDNS.
type Gateway struct {
	cfg    *config.Config
	bus    canbus.Bus
	engine *gateway.Engine
	tcp    *Server
	ws     *WebSocketServer
	ready  chan struct{}
}

// NewGateway builds a gateway for an already opened bus. display may be nil.
func NewGateway(cfg *config.Config, bus canbus.Bus, display gateway.Notifier) *Gateway {
	engine := gateway.New(gateway.Options{
		Registry:  gateway.NewRegistry(cfg.Listen.MaxClients),
		Bus:       bus,
		Display:   display,
		Responder: hapcan.NewResponder(cfg.GatewayIdentity()),
		TxTimeout: cfg.Bus.TxTimeout,
	})

	g := &Gateway{
		cfg:    cfg,
		bus:    bus,
		engine: engine,
		tcp: New(&Config{
			Addr:         cfg.ListenAddr(),
			WriteTimeout: cfg.Listen.WriteTimeout,
		}, engine),
		ready: make(chan struct{}),
	}

	if cfg.WebSocket.Enabled {
		g.ws = NewWebSocketServer(&WebSocketConfig{
			Addr:         cfg.WebSocket.Addr,
			Path:         cfg.WebSocket.Path,
			WriteTimeout: cfg.Listen.WriteTimeout,
			BusName:      bus.Name(),
		}, engine)
	}
	return g
}

// Engine returns the protocol engine.
func (g *Gateway) Engine() *gateway.Engine {
	return g.engine
}

// Ready is closed once every listener is bound.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// Addr returns the TCP client address, valid after Ready.
func (g *Gateway) Addr() net.Addr {
	return g.tcp.Addr()
}

// WebSocketAddr returns the WebSocket address, or nil when disabled.
func (g *Gateway) WebSocketAddr() net.Addr {
	if g.ws == nil {
		return nil
	}
	return g.ws.Addr()
}

// Run serves clients and pumps the bus until ctx is cancelled or one of
// them fails; the others are then shut down.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.tcp.Listen(); err != nil {
		return err
	}
	if g.ws != nil {
		if err := g.ws.Listen(); err != nil {
			_ = g.tcp.listener.Close()
			return err
		}
	}
	close(g.ready)

	if g.cfg.MDNS.Enabled {
		adv, err := discovery.Advertise(g.cfg.MDNS.Instance, g.port(), g.txtRecords())
		if err != nil {
			// clients can still connect by address
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	logging.Info("HAPCAN gateway running",
		zap.String("version", version.Version),
		zap.String("bus", g.bus.Name()),
		zap.Int("max_clients", g.cfg.Listen.MaxClients),
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return g.tcp.Serve(ctx)
	})
	if g.ws != nil {
		eg.Go(func() error {
			return g.ws.Serve(ctx)
		})
	}
	eg.Go(func() error {
		return g.engine.Run(ctx, g.bus)
	})

	err := eg.Wait()

	stats := g.engine.Stats()
	logging.Info("HAPCAN gateway stopped",
		zap.Uint64("frames_from_bus", stats.FramesFromBus),
		zap.Uint64("frames_to_bus", stats.FramesToBus),
		zap.Uint64("transmit_failures", stats.TransmitFailures),
		zap.Uint64("queries_answered", stats.QueriesAnswered),
	)
	return err
}

func (g *Gateway) port() int {
	if tcp, ok := g.tcp.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return g.cfg.Listen.Port
}

func (g *Gateway) txtRecords() map[string]string {
	txt := map[string]string{
		discovery.TxtVersion: version.Version,
		discovery.TxtBus:     g.bus.Name(),
	}
	if g.ws != nil {
		if tcp, ok := g.ws.Addr().(*net.TCPAddr); ok {
			txt[discovery.TxtWS] = ":" + strconv.Itoa(tcp.Port) + g.cfg.WebSocket.Path
		}
	}
	return txt
}
