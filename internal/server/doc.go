// Package server exposes the gateway engine to network clients.
//
// Server is the HAPCAN Ethernet interface: a plain TCP listener (port 1001
// by default) carrying the raw wire frame byte stream in both directions.
// Every accepted connection claims a slot in the engine's registry; when
// the registry is full the connection is closed immediately.
//
// WebSocketServer carries the same byte stream in binary WebSocket
// messages for clients that can only speak HTTP, and serves the engine
// counters as JSON at /status.
//
// Gateway ties both listeners, the CAN bus receive pump and the mDNS
// advertisement together. Run supervises them with an errgroup: when one
// stops with an error the others are shut down.
//
// # Shutdown
//
// Cancelling the context passed to Run closes the listeners, closes every
// client connection and waits for the connection goroutines, which
// release their slots on the way out.
package server
