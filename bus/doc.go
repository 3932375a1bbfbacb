// Package bus defines the two-wire (I²C) transport used by device drivers.
//
// The package separates two layers:
//
//   - [Bus] is the transaction interface a driver is written against. It
//     follows the Wire model: open a write transaction, queue bytes, end the
//     transaction; or request a number of bytes and drain them one at a time.
//   - [Conn] is the raw interface a backend implements. Each call is a whole
//     START..STOP transaction with a byte slice.
//
// [Transport] adapts any Conn into a Bus with fixed-size transmit and
// receive buffers. The buffer size caps the length of a single transaction;
// queuing or requesting more than it holds fails with
// [pkg.ErrTransferTooLarge] instead of truncating.
//
// # Backends
//
// The following Conn implementations are provided:
//
//   - [github.com/ardnew/i2ceeprom/bus/sim] simulated EEPROM for tests
//   - [github.com/ardnew/i2ceeprom/bus/i2cdev] Linux /dev/i2c-N character devices
//   - [github.com/ardnew/i2ceeprom/bus/mcp2221a] Microchip MCP2221A USB bridge
//   - [github.com/ardnew/i2ceeprom/bus/buspirate] Bus Pirate binary I²C mode
//
// # Example
//
//	dev := sim.NewDevice(sim.Config{Capacity: 32 * 1024, PageSize: 64})
//	b := bus.NewTransport(dev, bus.DefaultBufferSize)
//	if err := b.Begin(); err != nil {
//	    return err
//	}
//	b.BeginTransmission(0x50)
//	b.WriteByte(0x00) // address MSB
//	b.WriteByte(0x10) // address LSB
//	err := b.EndTransmission()
package bus
