// Package hapcan implements the HAPCAN Ethernet wire framing used between
// the gateway and its network clients.
//
// # Wire Frames
//
// Every frame starts with 0xAA and ends with 0xA5. Three lengths exist:
//
//	 5 bytes  [AA][node][command][param][A5]             system query
//	13 bytes  [AA][node][type][8 body][checksum][A5]     system reply
//	15 bytes  [AA][4 id][8 data][checksum][A5]           CAN message
//
// The checksum is the sum, modulo 256, of the bytes between the start
// marker and the checksum itself.
//
// # Components
//
//   - Parser recovers frames from a byte stream, one byte at a time.
//   - Encode/Decode translate between a canbus.Frame and a 15-byte frame.
//     Decode always yields an 8-byte message and does not check the
//     checksum; DecodeStrict does.
//   - Responder answers the system queries addressed to node 0x10
//     (hardware type, firmware type, description, supply voltage) with
//     canned 13-byte replies.
//
// 13-byte frames arriving from clients are recognized by the parser but
// have no decoder; the gateway logs and drops them.
package hapcan
