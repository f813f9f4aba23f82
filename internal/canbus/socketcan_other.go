//go:build !linux

package canbus

import "context"

// SocketCAN is only available on Linux.
type SocketCAN struct{}

// OpenSocketCAN always fails outside Linux.
func OpenSocketCAN(iface string) (*SocketCAN, error) {
	return nil, ErrUnsupported
}

func (s *SocketCAN) Name() string { return "socketcan" }

func (s *SocketCAN) Transmit(ctx context.Context, f Frame) error { return ErrUnsupported }

func (s *SocketCAN) Receive(ctx context.Context) (Frame, error) { return Frame{}, ErrUnsupported }

func (s *SocketCAN) Close() error { return nil }
