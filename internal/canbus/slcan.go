package canbus

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/hapcangw/internal/logging"
	"github.com/muurk/hapcangw/internal/syncutil"
)

const (
	slcanReadTimeout = 50 * time.Millisecond
	slcanCmdDelay    = 10 * time.Millisecond
	slcanMaxLine     = 32 // "T" + 8 id + 1 dlc + 16 data, with headroom
)

// slcanBitrates maps bus speeds to the Lawicel "Sn" setup command.
var slcanBitrates = map[int]string{
	10000:   "S0",
	20000:   "S1",
	50000:   "S2",
	100000:  "S3",
	125000:  "S4",
	250000:  "S5",
	500000:  "S6",
	800000:  "S7",
	1000000: "S8",
}

var errSLCANLine = errors.New("slcan: malformed frame line")

// SLCAN drives a serial-line CAN adapter (CANable, USBtin, Lawicel CANUSB)
// speaking the Lawicel ASCII protocol.
type SLCAN struct {
	port serial.Port
	name string

	wmu  syncutil.Mutex
	rx   chan Frame
	errc chan error
	done chan struct{}
	once sync.Once
}

// OpenSLCAN opens the serial device, configures the bitrate and opens the
// CAN channel.
func OpenSLCAN(ctx context.Context, portName string, baud, bitrate int) (*SLCAN, error) {
	setup, ok := slcanBitrates[bitrate]
	if !ok {
		return nil, fmt.Errorf("%w: slcan does not support bitrate %d", ErrUnsupported, bitrate)
	}

	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %q: %w", portName, err)
	}
	if err := p.SetReadTimeout(slcanReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	_ = p.ResetInputBuffer()
	_ = p.ResetOutputBuffer()

	// Close any channel left open by a previous run before changing speed.
	for _, cmd := range []string{"C", setup, "O"} {
		if err := ctx.Err(); err != nil {
			_ = p.Close()
			return nil, err
		}
		if _, err := p.Write([]byte(cmd + "\r")); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("slcan %s: %w", cmd, err)
		}
		time.Sleep(slcanCmdDelay)
	}

	s := &SLCAN{
		port: p,
		name: "slcan:" + portName,
		rx:   make(chan Frame, 64),
		errc: make(chan error, 1),
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Name implements Bus.
func (s *SLCAN) Name() string { return s.name }

// Transmit implements Transmitter.
func (s *SLCAN) Transmit(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	line := encodeSLCAN(f)
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.port.Write(line); err != nil {
		return fmt.Errorf("slcan write: %w", err)
	}
	return nil
}

// Receive implements Receiver.
func (s *SLCAN) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.rx:
		return f, nil
	case err := <-s.errc:
		return Frame{}, err
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-s.done:
		return Frame{}, ErrClosed
	}
}

// Close closes the CAN channel and the serial port.
func (s *SLCAN) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wmu.Lock()
		_, _ = s.port.Write([]byte("C\r"))
		s.wmu.Unlock()
		time.Sleep(slcanCmdDelay)
		err = s.port.Close()
	})
	return err
}

func (s *SLCAN) readLoop() {
	line := bytes.NewBuffer(make([]byte, 0, slcanMaxLine))
	buf := make([]byte, 64)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := s.port.Read(buf)
		if err != nil {
			select {
			case <-s.done:
			case s.errc <- fmt.Errorf("slcan read: %w", err):
			}
			return
		}

		for _, b := range buf[:n] {
			switch b {
			case '\r':
				s.handleLine(line.Bytes())
				line.Reset()
			case 0x07:
				// Bell: the adapter rejected the last command.
				logging.Warn("SLCAN adapter rejected command", zap.String("port", s.name))
				line.Reset()
			default:
				if line.Len() >= slcanMaxLine {
					line.Reset()
				}
				line.WriteByte(b)
			}
		}
	}
}

func (s *SLCAN) handleLine(line []byte) {
	if len(line) == 0 {
		return
	}
	switch line[0] {
	case 't', 'T':
		f, err := decodeSLCAN(line)
		if err != nil {
			logging.Warn("Dropping malformed SLCAN frame",
				zap.String("line", string(line)),
				zap.Error(err),
			)
			return
		}
		select {
		case s.rx <- f:
		case <-s.done:
		}
	case 'z', 'Z':
		// transmit acknowledgement
	default:
		logging.Debug("SLCAN message", zap.String("line", string(line)))
	}
}

// encodeSLCAN renders a transmit command: "T<8 hex id><dlc><data>\r" for
// extended frames, "t<3 hex id><dlc><data>\r" for standard ones.
func encodeSLCAN(f Frame) []byte {
	var b bytes.Buffer
	if f.Extended {
		fmt.Fprintf(&b, "T%08X", f.ID&EFFMask)
	} else {
		fmt.Fprintf(&b, "t%03X", f.ID&SFFMask)
	}
	payload := f.Payload()
	b.WriteString(strconv.Itoa(len(payload)))
	fmt.Fprintf(&b, "%X", payload)
	b.WriteByte('\r')
	return b.Bytes()
}

// decodeSLCAN parses a received frame line without its trailing '\r'.
func decodeSLCAN(line []byte) (Frame, error) {
	if len(line) == 0 {
		return Frame{}, errSLCANLine
	}

	var idLen int
	var f Frame
	switch line[0] {
	case 'T':
		idLen = 8
		f.Extended = true
	case 't':
		idLen = 3
	default:
		return Frame{}, fmt.Errorf("%w: unexpected command %q", errSLCANLine, line[0])
	}

	if len(line) < 1+idLen+1 {
		return Frame{}, fmt.Errorf("%w: too short", errSLCANLine)
	}
	id, err := strconv.ParseUint(string(line[1:1+idLen]), 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: identifier: %v", errSLCANLine, err)
	}
	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > MaxDataLen {
		return Frame{}, fmt.Errorf("%w: dlc %q", errSLCANLine, line[1+idLen])
	}
	body := line[2+idLen:]
	if len(body) != dlc*2 {
		return Frame{}, fmt.Errorf("%w: expected %d data bytes", errSLCANLine, dlc)
	}
	if _, err := hex.Decode(f.Data[:], body); err != nil {
		return Frame{}, fmt.Errorf("%w: data: %v", errSLCANLine, err)
	}

	f.ID = uint32(id)
	if f.Extended {
		f.ID &= EFFMask
	} else {
		f.ID &= SFFMask
	}
	f.Len = uint8(dlc)
	return f, nil
}
