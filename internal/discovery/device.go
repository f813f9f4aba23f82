package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Gateway is a HAPCAN gateway found on the network.
type Gateway struct {
	// Instance is the advertised service instance name (e.g., "hapcan-gw")
	Instance string

	// Hostname is the mDNS hostname (e.g., "pi-garage.local.")
	Hostname string

	// IP is the first address found, IPv4 preferred
	IP string

	// Port is the HAPCAN TCP port (typically 1001)
	Port int

	// Metadata contains the TXT record data.
	// Common fields: "version", "bus", "ws"
	Metadata map[string]string

	// DiscoveredAt is when the gateway was seen
	DiscoveredAt time.Time
}

// String returns a human-readable description of the gateway
func (g *Gateway) String() string {
	return fmt.Sprintf("HAPCAN Gateway %s (%s) at %s", g.Instance, g.Hostname, g.Address())
}

// Address returns the host:port clients should dial
func (g *Gateway) Address() string {
	return net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
}

// Version returns the advertised software version, if any
func (g *Gateway) Version() string {
	return g.GetMetadata(TxtVersion)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}
