//go:build linux

package canbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestCANFrameMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame Frame
	}{
		{name: "extended", frame: NewFrame(0x1ABCDEF0, []byte{1, 2, 3})},
		{name: "standard", frame: Frame{ID: 0x321, Len: 1, Data: [8]byte{0x55}}},
		{name: "empty extended", frame: NewFrame(0x10, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := unmarshalCANFrame(marshalCANFrame(tt.frame))
			assert.True(t, ok)
			assert.Equal(t, tt.frame, got)
		})
	}
}

func TestUnmarshalSkipsRemoteAndErrorFrames(t *testing.T) {
	t.Parallel()

	buf := marshalCANFrame(NewFrame(0x100, nil))
	buf[3] |= 0x40 // RTR
	_, ok := unmarshalCANFrame(buf)
	assert.False(t, ok)

	buf = marshalCANFrame(NewFrame(0x100, nil))
	buf[3] |= 0x20 // ERR
	_, ok = unmarshalCANFrame(buf)
	assert.False(t, ok)
}

// newPipeSocketCAN wraps the write end of a pipe so the descriptor
// handling can be tested without a CAN interface.
func newPipeSocketCAN(t *testing.T) (*SocketCAN, int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() { _ = unix.Close(p[0]) })
	return &SocketCAN{iface: "pipe", fd: p[1], closed: make(chan struct{})}, p[0]
}

func TestSocketCANTransmitAfterCloseDoesNotTouchDescriptor(t *testing.T) {
	s, _ := newPipeSocketCAN(t)
	oldFd := s.fd
	require.NoError(t, s.Close())
	assert.Equal(t, -1, s.fd)

	// the released number is likely handed out again
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
	})
	t.Logf("old fd %d, new pipe %v", oldFd, p)

	err := s.Transmit(context.Background(), NewFrame(0x10, []byte{1}))
	assert.ErrorIs(t, err, ErrClosed)

	buf := make([]byte, unix.CAN_MTU)
	_, err = unix.Read(p[0], buf)
	assert.ErrorIs(t, err, unix.EAGAIN, "nothing may be written to a reused descriptor")

	_, err = s.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close(), "second Close is a no-op")
}

func TestSocketCANCloseWaitsForInFlightWrite(t *testing.T) {
	s, r := newPipeSocketCAN(t)

	require.NoError(t, s.Transmit(context.Background(), NewFrame(0x1234, []byte{0xAA})))
	buf := make([]byte, unix.CAN_MTU)
	n, err := unix.Read(r, buf)
	require.NoError(t, err)
	assert.Equal(t, unix.CAN_MTU, n)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Transmit(context.Background(), NewFrame(0x1234, nil))
			if err != nil {
				assert.ErrorIs(t, err, ErrClosed)
			}
		}()
	}
	require.NoError(t, s.Close())
	wg.Wait()
}
