package hapcan

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSystemQuery is returned for frames that are not 5-byte queries
	// addressed to the gateway node.
	ErrNotSystemQuery = errors.New("hapcan: not a system query")

	// ErrUnknownCommand is returned for system queries with an unrecognized selector.
	ErrUnknownCommand = errors.New("hapcan: unknown system command")
)

// DescriptionLen is the length of the device name carried by the two
// description replies.
const DescriptionLen = 16

// Identity holds the bodies of the canned system replies. Each body is the
// 8 bytes that follow [node][type] in a 13-byte reply frame.
type Identity struct {
	HardwareType  [8]byte
	FirmwareType  [8]byte
	SupplyVoltage [8]byte
	Description   [DescriptionLen]byte
}

// DefaultIdentity returns the identity of the reference gateway firmware
// (an "RS232C Interface" class device).
func DefaultIdentity() Identity {
	id := Identity{
		HardwareType:  [8]byte{0x30, 0x00, 0x03, 0xFF, 0x00, 0x00, 0x07, 0xA0},
		FirmwareType:  [8]byte{0x30, 0x00, 0x03, 0x65, 0x00, 0x00, 0x03, 0x04},
		SupplyVoltage: [8]byte{0xC5, 0x40, 0xA7, 0x70, 0xFF, 0xFF, 0xFF, 0xFF},
	}
	copy(id.Description[:], "RS232C Interface")
	return id
}

// WithDescription returns a copy of the identity carrying name, truncated or
// space padded to 16 ASCII characters. Non-printable characters become '?'.
func (id Identity) WithDescription(name string) Identity {
	for i := range id.Description {
		id.Description[i] = ' '
	}
	for i := 0; i < len(name) && i < DescriptionLen; i++ {
		c := name[i]
		if c < 0x20 || c > 0x7E {
			c = '?'
		}
		id.Description[i] = c
	}
	return id
}

// Responder answers system queries from a fixed reply table. It is safe for
// concurrent use.
type Responder struct {
	replies map[byte][][]byte
}

// NewResponder builds the reply table for id.
func NewResponder(id Identity) *Responder {
	var descA, descB [8]byte
	copy(descA[:], id.Description[:8])
	copy(descB[:], id.Description[8:])

	return &Responder{
		replies: map[byte][][]byte{
			CmdHardwareType:  {SystemFrame(CmdHardwareType+1, id.HardwareType)},
			CmdFirmwareType:  {SystemFrame(CmdFirmwareType+1, id.FirmwareType)},
			CmdDescription:   {SystemFrame(CmdDescription+1, descA), SystemFrame(CmdDescription+1, descB)},
			CmdSupplyVoltage: {SystemFrame(CmdSupplyVoltage+1, id.SupplyVoltage)},
		},
	}
}

// IsSystemQuery reports whether frame is a 5-byte query addressed to the
// gateway node.
func IsSystemQuery(frame []byte) bool {
	return len(frame) == QueryFrameLen && frame[1] == GatewayNode
}

// Respond returns the reply frames for a system query, in transmit order.
// The returned frames are owned by the caller.
func (r *Responder) Respond(frame []byte) ([][]byte, error) {
	if !IsSystemQuery(frame) {
		return nil, ErrNotSystemQuery
	}

	cmd := frame[2]
	table, ok := r.replies[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, cmd)
	}

	out := make([][]byte, len(table))
	for i, reply := range table {
		out[i] = append([]byte(nil), reply...)
	}
	return out, nil
}

// SystemFrame builds a 13-byte gateway reply:
// [start][node][replyType][8 body bytes][checksum][end].
func SystemFrame(replyType byte, body [8]byte) []byte {
	out := make([]byte, SystemFrameLen)
	out[0] = StartByte
	out[1] = GatewayNode
	out[2] = replyType
	copy(out[3:11], body[:])
	out[11] = Checksum(out)
	out[12] = EndByte
	return out
}

// CommandName returns a label for a system query selector.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdHardwareType:
		return "hardware type"
	case CmdFirmwareType:
		return "firmware type"
	case CmdSupplyVoltage:
		return "supply voltage"
	case CmdDescription:
		return "description"
	default:
		return fmt.Sprintf("unknown(0x%02x)", cmd)
	}
}
