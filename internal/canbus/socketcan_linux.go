//go:build linux

package canbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/muurk/hapcangw/internal/syncutil"
)

// Receive polls in slices of this length so it can observe cancellation.
const socketCANPoll = 100 * time.Millisecond

// SocketCAN is a raw CAN_RAW socket bound to a Linux CAN interface.
//
// Every syscall on fd holds mu for reading; Close takes it for writing, so
// the descriptor number is never used after it has been released.
type SocketCAN struct {
	iface string

	mu     syncutil.RWMutex
	fd     int // -1 once closed
	closed chan struct{}
}

// OpenSocketCAN binds a raw CAN socket to iface (e.g. "can0", "vcan0").
// The interface bitrate is configured outside the gateway (ip link).
func OpenSocketCAN(iface string) (*SocketCAN, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", iface, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_CAN): %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 0); err != nil {
		// Older kernels may not know this option
		if !errors.Is(err, unix.ENOPROTOOPT) {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("disable CAN FD: %w", err)
		}
	}
	tv := unix.NsecToTimeval(socketCANPoll.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind(can@%s): %w", iface, err)
	}

	return &SocketCAN{
		fd:     fd,
		iface:  iface,
		closed: make(chan struct{}),
	}, nil
}

// Name implements Bus.
func (s *SocketCAN) Name() string { return "socketcan:" + s.iface }

// Transmit implements Transmitter. The context deadline becomes the socket
// send timeout.
func (s *SocketCAN) Transmit(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := marshalCANFrame(f)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fd < 0 {
		return ErrClosed
	}
	if deadline, ok := ctx.Deadline(); ok {
		wait := time.Until(deadline)
		if wait <= 0 {
			return context.DeadlineExceeded
		}
		tv := unix.NsecToTimeval(wait.Nanoseconds())
		_ = unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
	}
	if _, err := unix.Write(s.fd, buf[:]); err != nil {
		return fmt.Errorf("socketcan write: %w", err)
	}
	return nil
}

// read performs one bounded read under the descriptor lock.
func (s *SocketCAN) read(buf []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fd < 0 {
		return 0, ErrClosed
	}
	return unix.Read(s.fd, buf)
}

// Receive implements Receiver.
func (s *SocketCAN) Receive(ctx context.Context) (Frame, error) {
	var buf [unix.CAN_MTU]byte
	for {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-s.closed:
			return Frame{}, ErrClosed
		default:
		}

		n, err := s.read(buf[:])
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return Frame{}, ErrClosed
			}
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return Frame{}, fmt.Errorf("socketcan read: %w", err)
		}
		if n != unix.CAN_MTU {
			return Frame{}, fmt.Errorf("socketcan: short read: %d", n)
		}

		f, ok := unmarshalCANFrame(buf)
		if !ok {
			// error and remote frames are not HAPCAN traffic
			continue
		}
		return f, nil
	}
}

// Close implements Bus. It waits for an in-flight read (at most one poll
// interval) or write (bounded by the send deadline) to return.
func (s *SocketCAN) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	close(s.closed)
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

// struct can_frame (linux/can.h), host byte order:
//
//	can_id  u32  [0:4]  (includes EFF/RTR/ERR flags)
//	can_dlc u8   [4]
//	pad     3B   [5:8]
//	data    [8]  [8:16]
func marshalCANFrame(f Frame) [unix.CAN_MTU]byte {
	var buf [unix.CAN_MTU]byte
	id := f.ID & SFFMask
	if f.Extended {
		id = f.ID&EFFMask | EFFFlag
	}
	binary.LittleEndian.PutUint32(buf[0:4], id)
	payload := f.Payload()
	buf[4] = uint8(len(payload))
	copy(buf[8:], payload)
	return buf
}

func unmarshalCANFrame(buf [unix.CAN_MTU]byte) (Frame, bool) {
	raw := binary.LittleEndian.Uint32(buf[0:4])
	if raw&(RTRFlag|ERRFlag) != 0 {
		return Frame{}, false
	}
	dlc := buf[4]
	if dlc > MaxDataLen {
		dlc = MaxDataLen
	}

	f := Frame{Len: dlc}
	if raw&EFFFlag != 0 {
		f.Extended = true
		f.ID = raw & EFFMask
	} else {
		f.ID = raw & SFFMask
	}
	copy(f.Data[:], buf[8:8+int(dlc)])
	return f, true
}
