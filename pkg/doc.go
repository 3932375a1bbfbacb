// Package pkg provides shared utilities for the i2ceeprom packages.
//
// This package contains common functionality used by the bus transports,
// the EEPROM driver and the command-line tool, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for bus and EEPROM failures
//   - Transaction completion [Status] codes
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute. All
// loggers built here share one level, warn by default:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.SetLogOutput(os.Stderr, pkg.LogFormatJSON)
//	pkg.LogInfo(pkg.ComponentDriver, "block updated", "addr", 0x0100, "n", 16)
//
// # Errors
//
// Failures are reported as sentinel values, possibly wrapped by a transport:
//
//	if errors.Is(err, pkg.ErrNoDevice) {
//	    // Nothing acknowledged the device address
//	}
package pkg
