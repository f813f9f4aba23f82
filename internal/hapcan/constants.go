package hapcan

// Wire framing markers
const (
	StartByte = 0xAA
	EndByte   = 0xA5
)

// Valid wire frame lengths
const (
	QueryFrameLen  = 5  // [start][node][command][param][end]
	SystemFrameLen = 13 // [start][node][type][8 body][checksum][end]
	FrameLen       = 15 // [start][4 id][8 data][checksum][end]

	// ParserBufferSize is the capacity of a connection's frame buffer
	ParserBufferSize = 16
)

// GatewayNode is the reserved system-node address the gateway answers for.
const GatewayNode = 0x10

// System query selectors. A reply carries the selector plus one.
const (
	CmdHardwareType  = 0x40
	CmdFirmwareType  = 0x60
	CmdSupplyVoltage = 0xC0
	CmdDescription   = 0xE0
)

// DataOffset is the index of the first data byte in a 15-byte frame.
const DataOffset = 5

// DefaultPort is the TCP port of the HAPCAN Ethernet interface.
const DefaultPort = 1001

// IsValidLength reports whether n is one of the accepted wire frame lengths.
func IsValidLength(n int) bool {
	return n == QueryFrameLen || n == SystemFrameLen || n == FrameLen
}
