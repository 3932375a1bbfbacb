// Package eeprom implements a driver for serial EEPROMs with a two-byte word
// address, such as the 24C32 through 24C512 families, on a [bus.Bus].
//
// # Protocol
//
// Every operation is a short sequence of bus transactions addressed to one
// device:
//
//   - A write transaction carries the word address, most significant byte
//     first, followed by the data bytes.
//   - A read first sets the device address pointer with an address-only
//     write, then requests the bytes.
//   - After every data write the device runs an internal write cycle and
//     ignores the bus. The driver waits it out before returning, either by
//     sleeping [Config.WriteDelay] or by acknowledge polling ([WaitPoll]).
//
// # Wear reduction
//
// [Driver.UpdateBlock] reads the target range first and issues no write at
// all when the device already holds the same bytes. EEPROM cells endure a
// limited number of write cycles, so callers that persist settings
// repeatedly should prefer UpdateBlock over WriteByteAt.
//
// # Limits
//
// A block call moves at most [Config.MaxTransfer] bytes (30 by default: a
// 32-byte bus buffer minus the two address bytes). Devices wrap writes at
// the page boundary instead of advancing to the next page, so UpdateBlock
// rejects blocks that cross one. Both limits are checked before any bus
// traffic and rejected requests return [pkg.ErrTransferTooLarge] or
// [pkg.ErrPageBoundary]. [Store] splits arbitrary ranges to fit.
//
// # Errors
//
// Every operation returns an error wrapping a [pkg] sentinel. [Compat]
// provides the legacy surface for callers that cannot handle errors: reads
// that fail return [SentinelByte] (0xFF) and short block reads leave the
// tail of the buffer unmodified, with nothing but a log line to show for
// it. A 0xFF from Compat is not proof the device is present.
//
// # Example
//
//	dev := sim.NewDevice(sim.Config{})
//	cfg := eeprom.DefaultConfig()
//	cfg.Capacity = sim.DefaultCapacity
//	drv, err := eeprom.New(bus.NewTransport(dev, 0), cfg)
//	if err != nil {
//	    return err
//	}
//	if _, err := drv.UpdateBlock([]byte("settings"), 0x0040); err != nil {
//	    return err
//	}
package eeprom
