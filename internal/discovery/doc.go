// Package discovery advertises and finds HAPCAN gateways with multicast DNS.
//
// A running gateway registers itself as a "_hapcan._tcp" service on its
// client port. The TXT record carries the software version, the bus it is
// attached to and, when enabled, the WebSocket address:
//
//	version=1.2.0 bus=socketcan:can0 ws=:8080/ws
//
// Scanner browses for the same service type, which is what the
// "hapcan-gw discover" command uses.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Gateways must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
