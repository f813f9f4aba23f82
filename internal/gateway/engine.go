package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/hapcangw/internal/canbus"
	"github.com/muurk/hapcangw/internal/hapcan"
	"github.com/muurk/hapcangw/internal/logging"
)

// Options configures an Engine. Zero values get defaults.
type Options struct {
	Registry  *Registry
	Bus       canbus.Transmitter
	Display   Notifier
	Responder *hapcan.Responder
	TxTimeout time.Duration
}

// Engine moves frames between the CAN bus and the client table.
type Engine struct {
	registry  *Registry
	bus       canbus.Transmitter
	display   Notifier
	responder *hapcan.Responder
	txTimeout time.Duration

	stats counters
}

// New creates an engine. A nil Bus drops every client frame with a
// transmit failure.
func New(opts Options) *Engine {
	if opts.Registry == nil {
		opts.Registry = NewRegistry(DefaultCapacity)
	}
	if opts.Display == nil {
		opts.Display = NopNotifier{}
	}
	if opts.Responder == nil {
		opts.Responder = hapcan.NewResponder(hapcan.DefaultIdentity())
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = canbus.DefaultTxTimeout
	}

	return &Engine{
		registry:  opts.Registry,
		bus:       opts.Bus,
		display:   opts.Display,
		responder: opts.Responder,
		txTimeout: opts.TxTimeout,
	}
}

// Registry returns the engine's connection table.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	s := e.stats.snapshot()
	s.ActiveClients = e.registry.Active()
	s.Capacity = e.registry.Capacity()
	return s
}

// Connect assigns t a slot. On ErrRegistryFull the caller should close t.
func (e *Engine) Connect(t Transport) (*Slot, error) {
	s, err := e.registry.Assign(t)
	if err != nil {
		e.stats.clientsRefused.Add(1)
		logging.LogConnection(t.RemoteAddr(), "refused", zap.Error(err))
		return nil, err
	}
	logging.LogConnection(t.RemoteAddr(), "connected", zap.Int("slot", s.ID()))
	e.clientsChanged()
	return s, nil
}

// Disconnect releases s. It is called by the slot's reader once its
// transport is gone.
func (e *Engine) Disconnect(s *Slot) {
	addr := e.registry.RemoteAddr(s)
	if s.parser.Collecting() {
		logging.Debug("Discarding partial frame", zap.Int("slot", s.ID()))
	}
	e.registry.Release(s)
	logging.LogConnection(addr, "disconnected", zap.Int("slot", s.ID()))
	e.clientsChanged()
}

// HandleBytes runs data through the slot's parser and handles every
// completed frame in arrival order. Only the slot's reader may call it.
func (e *Engine) HandleBytes(s *Slot, data []byte) int {
	return s.parser.Feed(data, e.HandleFrame)
}

// HandleFrame processes one complete frame received from a client.
func (e *Engine) HandleFrame(frame []byte) {
	logging.LogFrame(NetworkToBus.String(), frame)

	if len(frame) == hapcan.FrameLen {
		e.notify(NetworkToBus, frame)
		e.transmit(frame)
		return
	}

	if hapcan.IsSystemQuery(frame) {
		e.answer(frame)
		return
	}

	e.stats.unrecognizedFrames.Add(1)
	logging.Warn("Unrecognized frame",
		zap.Int("length", len(frame)),
		zap.String("hex", logging.ColonHex(frame)),
	)
}

func (e *Engine) transmit(frame []byte) {
	msg, err := hapcan.Decode(frame)
	if err != nil {
		// unreachable for parser output, kept for direct callers
		e.stats.unrecognizedFrames.Add(1)
		logging.Warn("Dropping undecodable frame", zap.Error(err))
		return
	}

	if e.bus == nil {
		e.stats.transmitFailures.Add(1)
		logging.Warn("No CAN bus attached, dropping frame", zap.Stringer("frame", msg))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.txTimeout)
	defer cancel()

	if err := e.bus.Transmit(ctx, msg); err != nil {
		e.stats.transmitFailures.Add(1)
		logging.Warn("CAN transmit failed, frame dropped",
			zap.Stringer("frame", msg),
			zap.Error(err),
		)
		return
	}
	e.stats.framesToBus.Add(1)
}

func (e *Engine) answer(frame []byte) {
	cmd := frame[2]
	replies, err := e.responder.Respond(frame)
	if err != nil {
		if errors.Is(err, hapcan.ErrUnknownCommand) {
			e.stats.unknownCommands.Add(1)
		} else {
			e.stats.unrecognizedFrames.Add(1)
		}
		logging.Warn("Unhandled system query",
			zap.String("command", fmt.Sprintf("0x%02x", cmd)),
			zap.Error(err),
		)
		return
	}

	e.stats.queriesAnswered.Add(1)
	logging.Debug("Answering system query",
		zap.String("command", hapcan.CommandName(cmd)),
		zap.Int("replies", len(replies)),
	)
	for _, reply := range replies {
		e.Broadcast(reply)
	}
}

// HandleBusFrame forwards a CAN message to every client.
func (e *Engine) HandleBusFrame(msg canbus.Frame) {
	e.stats.framesFromBus.Add(1)

	frame := hapcan.Encode(msg)
	logging.LogFrame(BusToNetwork.String(), frame)
	e.notify(BusToNetwork, frame)
	e.Broadcast(frame)
}

// Broadcast writes frame to every active slot and returns the number of
// successful writes. A failed write deactivates that slot only.
func (e *Engine) Broadcast(frame []byte) int {
	e.stats.broadcasts.Add(1)

	delivered := 0
	dropped := false
	for _, tg := range e.registry.targets() {
		if err := tg.slot.write(tg.transport, frame); err != nil {
			e.stats.writeFailures.Add(1)
			if e.registry.deactivateTarget(tg.slot, tg.transport) {
				dropped = true
				logging.LogConnection(tg.transport.RemoteAddr(), "write failed",
					zap.Int("slot", tg.slot.ID()),
					zap.Error(err),
				)
			}
			continue
		}
		delivered++
	}

	e.stats.deliveries.Add(uint64(delivered))
	if dropped {
		e.clientsChanged()
	}
	return delivered
}

// Run pumps frames from rx into HandleBusFrame until ctx is cancelled or
// the bus fails.
func (e *Engine) Run(ctx context.Context, rx canbus.Receiver) error {
	for {
		msg, err := rx.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bus receive: %w", err)
		}
		e.HandleBusFrame(msg)
	}
}

func (e *Engine) notify(dir Direction, frame []byte) {
	e.display.FrameTransferred(dir, append([]byte(nil), frame...))
}

func (e *Engine) clientsChanged() {
	if o, ok := e.display.(ClientObserver); ok {
		o.ClientsChanged(e.registry.Active())
	}
}
