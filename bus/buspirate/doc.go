// Package buspirate implements a [bus.Conn] backend for the Bus Pirate
// serial adapter in its binary I²C mode.
//
// [Open] resets the adapter into raw bitbang mode ("BBIO1"), enters the I²C
// mode ("I2C1"), enables the supply and pull-ups, and sets the bus speed.
// Each Conn call then frames one START..STOP transfer using the bulk write
// and single-byte read commands.
package buspirate
