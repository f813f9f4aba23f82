package hapcan

import (
	"errors"
	"fmt"

	"github.com/muurk/hapcangw/internal/canbus"
)

var (
	// ErrFrameLength is returned when decoding anything but a 15-byte frame.
	ErrFrameLength = errors.New("hapcan: frame must be 15 bytes")

	// ErrFrameMarker is returned by DecodeStrict for wrong start/end markers.
	ErrFrameMarker = errors.New("hapcan: bad frame marker")

	// ErrChecksum is returned by DecodeStrict when byte 13 does not match.
	ErrChecksum = errors.New("hapcan: checksum mismatch")
)

// Encode converts a CAN message into a 15-byte wire frame. Data beyond the
// message length is zero padded, so the result is always 15 bytes.
//
// Identifier packing (29 bits):
//
//	byte 1 = id[28:21]
//	byte 2 = id[20:17] in the high nibble, id[16] in bit 0
//	byte 3 = id[15:8]
//	byte 4 = id[7:0]
func Encode(f canbus.Frame) []byte {
	out := make([]byte, FrameLen)
	id := f.ID & canbus.EFFMask

	out[0] = StartByte
	out[1] = byte((id & 0x1FE00000) >> 21)
	out[2] = byte((id&0x1E0000)>>13) | byte((id&0x10000)>>16)
	out[3] = byte((id & 0xFF00) >> 8)
	out[4] = byte(id & 0xFF)

	copy(out[DataOffset:DataOffset+canbus.MaxDataLen], f.Payload())

	out[13] = Checksum(out)
	out[14] = EndByte
	return out
}

// Decode converts a 15-byte wire frame into an extended CAN message.
//
// The message length is always 8 and all eight body bytes are copied; the
// original length is not carried on the wire. The checksum is not checked,
// use DecodeStrict for that.
func Decode(frame []byte) (canbus.Frame, error) {
	if len(frame) != FrameLen {
		return canbus.Frame{}, fmt.Errorf("%w: got %d", ErrFrameLength, len(frame))
	}

	var id uint32
	id |= uint32(frame[1]) << 21
	id |= uint32(frame[2]&0xF0) << 13
	id |= uint32(frame[2]&0x01) << 16
	id |= uint32(frame[3]) << 8
	id |= uint32(frame[4])

	f := canbus.Frame{
		ID:       id,
		Extended: true,
		Len:      canbus.MaxDataLen,
	}
	copy(f.Data[:], frame[DataOffset:DataOffset+canbus.MaxDataLen])
	return f, nil
}

// DecodeStrict is Decode plus marker and checksum validation.
func DecodeStrict(frame []byte) (canbus.Frame, error) {
	if len(frame) != FrameLen {
		return canbus.Frame{}, fmt.Errorf("%w: got %d", ErrFrameLength, len(frame))
	}
	if frame[0] != StartByte || frame[FrameLen-1] != EndByte {
		return canbus.Frame{}, fmt.Errorf("%w: %02x..%02x", ErrFrameMarker, frame[0], frame[FrameLen-1])
	}
	if want := Checksum(frame); frame[13] != want {
		return canbus.Frame{}, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrChecksum, frame[13], want)
	}
	return Decode(frame)
}

// Checksum sums, modulo 256, the bytes between the start marker and the
// checksum slot (the second to last byte). For a 15-byte frame that is
// bytes 1 through 12.
func Checksum(frame []byte) byte {
	if len(frame) < 3 {
		return 0
	}
	var sum byte
	for _, b := range frame[1 : len(frame)-2] {
		sum += b
	}
	return sum
}

// ValidChecksum reports whether the checksum slot of frame holds Checksum(frame).
func ValidChecksum(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	return frame[len(frame)-2] == Checksum(frame)
}
