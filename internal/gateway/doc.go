// Package gateway is the protocol engine between the CAN bus and the
// network clients.
//
// A Registry holds a fixed number of client slots. Each slot owns a
// hapcan.Parser fed only by the goroutine reading that client, plus a
// write lock so successive broadcasts reach the client in order.
//
// The Engine implements both paths:
//
//	client -> HandleBytes -> parser -> HandleFrame
//	    15 bytes:          notify display, decode, transmit to the bus
//	    5-byte query:      answer locally, broadcast the replies
//	    anything else:     log, count, drop
//
//	bus -> Run -> HandleBusFrame -> encode, notify display, Broadcast
//
// Failures never stop the engine. A failed client write deactivates that
// client only; a failed transmit is logged and the frame dropped.
package gateway
