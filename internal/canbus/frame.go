package canbus

import (
	"fmt"
	"strings"
)

// Identifier masks (same values as <linux/can.h>).
const (
	EFFMask = 0x1FFFFFFF // 29-bit extended identifier
	SFFMask = 0x7FF      // 11-bit standard identifier

	// Flag bits carried in the upper bits of a SocketCAN can_id
	EFFFlag = 0x80000000
	RTRFlag = 0x40000000
	ERRFlag = 0x20000000
)

// MaxDataLen is the classic CAN payload limit.
const MaxDataLen = 8

// Frame is a classic CAN message. Only the first Len bytes of Data are
// meaningful; the remainder is zero for frames built with NewFrame.
type Frame struct {
	ID       uint32
	Extended bool
	Len      uint8
	Data     [MaxDataLen]byte
}

// NewFrame builds an extended frame. Data beyond 8 bytes is dropped and the
// identifier is masked to 29 bits.
func NewFrame(id uint32, data []byte) Frame {
	f := Frame{
		ID:       id & EFFMask,
		Extended: true,
	}
	n := copy(f.Data[:], data)
	f.Len = uint8(n)
	return f
}

// Payload returns the valid data bytes.
func (f Frame) Payload() []byte {
	n := int(f.Len)
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return f.Data[:n]
}

// String renders the frame candump style: "1234ABCD#[8] 01 02 ...".
func (f Frame) String() string {
	var sb strings.Builder
	if f.Extended {
		fmt.Fprintf(&sb, "%08X", f.ID&EFFMask)
	} else {
		fmt.Fprintf(&sb, "%03X", f.ID&SFFMask)
	}
	fmt.Fprintf(&sb, "#[%d]", f.Len)
	for _, b := range f.Payload() {
		fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}
