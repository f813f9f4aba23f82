// Package canbus provides the CAN bus side of the gateway: a classic CAN
// Frame type and Bus drivers that transmit and receive frames.
//
// # Drivers
//
//   - socketcan: raw CAN_RAW socket on a Linux interface (can0, vcan0)
//   - slcan: Lawicel ASCII protocol over a serial port (CANable, USBtin)
//   - virtual: in-memory loopback bus for demos and tests
//
// Open selects a driver from a Config and retries transient open failures:
//
//	bus, err := canbus.Open(ctx, canbus.Config{Driver: "socketcan", Interface: "can0"})
//	if err != nil {
//	    return err
//	}
//	defer bus.Close()
//
// Transmit honours the context deadline, which the gateway sets to a short
// fixed wait (10ms by default). Receive blocks until a frame arrives, the
// context is cancelled or the bus is closed.
package canbus
