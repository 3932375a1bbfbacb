// Package mcp2221a implements a [bus.Conn] backend for the Microchip
// MCP2221A USB-to-I²C bridge.
//
// The bridge enumerates as a USB HID device and is driven with fixed
// 64-byte command and response reports. Each Conn call is one complete
// transfer: the I²C engine state is checked (and cancelled if stuck), the
// transfer command is sent, and the engine is polled until it returns to
// idle.
//
//	conn, err := mcp2221a.Open(0, 400000)
//	if err != nil {
//	    return err
//	}
//	b := bus.NewTransport(conn, bus.DefaultBufferSize)
//	defer b.Close()
package mcp2221a
