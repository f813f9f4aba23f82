// Package logging provides structured logging for the HAPCAN gateway.
//
// This package wraps a package-global zap logger with convenience functions
// for the logging patterns used throughout the gateway: connection events,
// frame traces and raw byte dumps.
//
// # Log Levels
//
//   - Debug: frame traces (colon hex), raw byte dumps
//   - Info: connections, bus open/close, advertisement
//   - Warn: unrecognized frames, unknown system commands, refused clients
//   - Error: bus transmit failures, listener failures
//
// # Structured Logging
//
//	logging.Info("Client connected",
//	    zap.String("remote_addr", "192.168.1.100:50122"),
//	    zap.Int("slot", 2),
//	)
//
// Connection logging:
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogConnection(remoteAddr, "connection_refused", zap.String("reason", "registry full"))
//
// Frame logging (debug level only):
//
//	logging.LogFrame("network->bus", frame) // hex=aa:30:00:...:a5
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// With an empty level the HAPCANGW_LOG_LEVEL environment variable is used;
// when that is empty too, logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
