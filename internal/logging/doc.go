// Package logging provides structured logging for picolink.
//
// This package wraps a zap logger with package-level helpers so that the
// link, transport and peer code log the same way. Logging is silent until
// Initialize is called with a level or PICOLINK_LOG_LEVEL is set.
//
// # Log Levels
//
//   - Debug: frame dumps, raw bytes, stale events
//   - Info: connection lifecycle and phase changes
//   - Warn: dropped frames, overflowing deliveries, failed connects
//   - Error: startup failures
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	logging.Info("Link phase changed",
//	    zap.String("remote_addr", "192.168.1.20:8082"),
//	    zap.Stringer("phase", link.Connected),
//	)
//
// All functions are safe for concurrent use.
package logging
