package canbus

import (
	"context"

	"github.com/muurk/hapcangw/internal/syncutil"
)

const virtualQueueSize = 64

// Virtual is an in-memory bus. Frames passed to Inject are delivered by
// Receive; frames passed to Transmit are queued on Sent, or echoed back to
// Receive in loopback mode. It backs the "virtual" driver and the gateway
// tests.
type Virtual struct {
	rx       chan Frame
	tx       chan Frame
	done     chan struct{}
	loopback bool

	mu       syncutil.Mutex
	closed   bool
	failNext error
}

// NewVirtual returns an open virtual bus.
func NewVirtual() *Virtual {
	return &Virtual{
		rx:   make(chan Frame, virtualQueueSize),
		tx:   make(chan Frame, virtualQueueSize),
		done: make(chan struct{}),
	}
}

// NewVirtualLoopback returns a virtual bus that echoes every transmitted
// frame back as a received one, like a vcan interface with loopback on.
// Frames are dropped when nobody drains Receive.
func NewVirtualLoopback() *Virtual {
	v := NewVirtual()
	v.loopback = true
	return v
}

// Name implements Bus.
func (v *Virtual) Name() string { return "virtual" }

// Transmit implements Transmitter. When the Sent queue is full the call
// waits for the context like a busy controller would.
func (v *Virtual) Transmit(ctx context.Context, f Frame) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if err := v.failNext; err != nil {
		v.failNext = nil
		v.mu.Unlock()
		return err
	}
	v.mu.Unlock()

	if v.loopback {
		select {
		case v.rx <- f:
		default:
		}
		return nil
	}

	select {
	case v.tx <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-v.done:
		return ErrClosed
	}
}

// Receive implements Receiver.
func (v *Virtual) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-v.rx:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-v.done:
		return Frame{}, ErrClosed
	}
}

// Inject simulates a frame arriving from the bus.
func (v *Virtual) Inject(f Frame) error {
	select {
	case v.rx <- f:
		return nil
	case <-v.done:
		return ErrClosed
	}
}

// Sent exposes frames handed to Transmit.
func (v *Virtual) Sent() <-chan Frame {
	return v.tx
}

// FailNextTransmit makes the next Transmit return err.
func (v *Virtual) FailNextTransmit(err error) {
	v.mu.Lock()
	v.failNext = err
	v.mu.Unlock()
}

// Close implements Bus.
func (v *Virtual) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		close(v.done)
	}
	return nil
}
