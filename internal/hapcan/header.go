package hapcan

import "fmt"

// Header is the HAPCAN view of a 29-bit identifier:
//
//	bits 28..17  frame type (12 bits)
//	bit  16      response flag
//	bits 15..8   sender node
//	bits  7..0   sender group
type Header struct {
	Type     uint16
	Response bool
	Node     byte
	Group    byte
}

// ParseHeader splits a CAN identifier into its HAPCAN fields.
func ParseHeader(id uint32) Header {
	return Header{
		Type:     uint16((id >> 17) & 0x0FFF),
		Response: id&(1<<16) != 0,
		Node:     byte(id >> 8),
		Group:    byte(id),
	}
}

// ID packs the header back into a CAN identifier.
func (h Header) ID() uint32 {
	id := uint32(h.Type&0x0FFF)<<17 | uint32(h.Node)<<8 | uint32(h.Group)
	if h.Response {
		id |= 1 << 16
	}
	return id
}

func (h Header) String() string {
	flag := ""
	if h.Response {
		flag = "R"
	}
	return fmt.Sprintf("%03X%s N:%d G:%d", h.Type, flag, h.Node, h.Group)
}

// FrameHeader extracts the header from a 15-byte wire frame without a full
// decode. It returns false for any other length.
func FrameHeader(frame []byte) (Header, bool) {
	f, err := Decode(frame)
	if err != nil {
		return Header{}, false
	}
	return ParseHeader(f.ID), true
}
